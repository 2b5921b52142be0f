package utils

import (
	"math/rand"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 0 {
			t.Errorf("expected empty result, got %v", result)
		}
	})

	// 测试单元素输入 - 应该直接处理，不使用并发
	t.Run("single input", func(t *testing.T) {
		input := []int{42}
		result := ParallelMap(input, 4, func(i int) int {
			return i * 2
		})
		if len(result) != 1 || result[0] != 84 {
			t.Errorf("expected [84], got %v", result)
		}
	})

	// 测试多元素输入 - 确保顺序正确
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		expected := []int{2, 4, 6, 8, 10}

		result := ParallelMap(input, 3, func(i int) int {
			// 添加随机延迟，测试顺序保持
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})

		if !reflect.DeepEqual(result, expected) {
			t.Errorf("expected %v, got %v", expected, result)
		}
	})

	// 测试并发上限 - worker 数不应被超过
	t.Run("bounded concurrency", func(t *testing.T) {
		input := make([]int, 100)
		for i := range input {
			input[i] = i
		}

		var maxConcurrent int32
		var currentConcurrent int32

		ParallelMap(input, 10, func(i int) int {
			current := atomic.AddInt32(&currentConcurrent, 1)
			for {
				max := atomic.LoadInt32(&maxConcurrent)
				if current <= max {
					break
				}
				if atomic.CompareAndSwapInt32(&maxConcurrent, max, current) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)

			atomic.AddInt32(&currentConcurrent, -1)
			return i
		})

		if got := atomic.LoadInt32(&maxConcurrent); got > 10 {
			t.Errorf("concurrency exceeded worker bound: got %d, want <= 10", got)
		}
	})

	// 测试 worker 数大于元素数
	t.Run("more workers than items", func(t *testing.T) {
		input := []int{1, 2, 3}
		result := ParallelMap(input, 16, func(i int) int {
			return i + 1
		})
		if !reflect.DeepEqual(result, []int{2, 3, 4}) {
			t.Errorf("unexpected result: %v", result)
		}
	})
}
