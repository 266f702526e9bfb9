package utils

import (
	"time"
)

// Retry 有界重试：最多执行 attempts 次 fn，两次之间固定等待 delay
// retryable 返回 false 的错误立即放弃；重试耗尽时返回最后一次的错误
func Retry(attempts int, delay time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
