package database

import (
	"fmt"
	"os"
	"time"

	"github.com/wfunc/dragon-companion/internal/logger"
	"go.uber.org/zap"
)

const (
	migrationLockAttempts = 30
	migrationLockStale    = 5 * time.Minute
)

func migrationLockPath(dbPath string) string {
	return dbPath + ".migration.lock"
}

// acquireMigrationLock 获取迁移锁
func acquireMigrationLock(dbPath string) (*os.File, error) {
	lockPath := migrationLockPath(dbPath)

	for i := 0; i < migrationLockAttempts; i++ {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			logger.GetModuleLogger("database").Debug("获取迁移锁成功", zap.String("lock", lockPath))
			return lockFile, nil
		}

		// 锁文件过旧视为上次迁移异常退出
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > migrationLockStale {
			logger.Warn("迁移锁文件过期，尝试删除", zap.String("lock", lockPath))
			os.Remove(lockPath)
			continue
		}

		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("无法获取迁移锁，可能有其他进程正在执行迁移")
}

// releaseMigrationLock 释放迁移锁
func releaseMigrationLock(lockFile *os.File) {
	if lockFile == nil {
		return
	}

	lockPath := lockFile.Name()
	lockFile.Close()
	os.Remove(lockPath)
	logger.GetModuleLogger("database").Debug("释放迁移锁", zap.String("lock", lockPath))
}

// CleanupStaleLocks 清理过期的迁移锁文件
func CleanupStaleLocks(dbPath string) {
	lockPath := migrationLockPath(dbPath)
	if info, err := os.Stat(lockPath); err == nil && time.Since(info.ModTime()) > 2*migrationLockStale {
		logger.Info("清理过期锁文件", zap.String("file", lockPath))
		os.Remove(lockPath)
	}
}
