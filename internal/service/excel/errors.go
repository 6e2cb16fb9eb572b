package excel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"projinfo/internal/model"
)

// ErrLocked 文件被其他程序占用或不可写
var ErrLocked = errors.New("file is open in another program or not writable")

// Windows 共享冲突 / 锁冲突
const (
	winErrorSharingViolation syscall.Errno = 32
	winErrorLockViolation    syscall.Errno = 33
)

// ownerFile 查找 Excel (~$name) 或 LibreOffice (.~lock.name#) 的占用标记文件
func ownerFile(path string) (string, bool) {
	dir, name := filepath.Split(path)
	for _, candidate := range []string{
		filepath.Join(dir, "~$"+name),
		filepath.Join(dir, ".~lock."+name+"#"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// isLockError 判断错误是否为占用/权限类错误
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLocked) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if runtime.GOOS == "windows" {
			return errno == winErrorSharingViolation || errno == winErrorLockViolation
		}
		return errno == syscall.EBUSY || errno == syscall.ETXTBSY
	}
	return false
}

// classify 打开阶段非占用错误视为格式错误，保存阶段视为写入失败
func classify(err error, saving bool) (model.ErrorKind, error) {
	if isLockError(err) {
		if errors.Is(err, ErrLocked) {
			return model.ErrorKindLocked, err
		}
		return model.ErrorKindLocked, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	if saving {
		return model.ErrorKindWrite, fmt.Errorf("save workbook: %w", err)
	}
	return model.ErrorKindMalformed, fmt.Errorf("open workbook: %w", err)
}
