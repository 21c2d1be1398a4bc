package util

import (
	"fmt"
	"os"
	"syscall"
)

// FileInfo contains extended file information, including modification time, size, and inode number.
type FileInfo struct {
	ModTime int64  `json:"modTime"` // nanoseconds since epoch
	Size    int64  `json:"size"`
	Inode   uint64 `json:"inode"`
}

// GetFileInfo retrieves detailed file information, including inode number.
// Supported on Linux and macOS.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return FileInfoOf(stat)
}

// FileInfoOf converts the result of a Stat call, usually on an open handle.
func FileInfoOf(stat os.FileInfo) (*FileInfo, error) {
	sysStat, ok := stat.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("failed to get file system information: %s", stat.Name())
	}

	return &FileInfo{
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
		Inode:   uint64(sysStat.Ino),
	}, nil
}
