package utils

import "sync"

// ParallelMap 用至多 workers 个 goroutine 并发映射 items，结果保持输入顺序。
// 单元素输入直接同步处理，不起 goroutine。
func ParallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		return []R{fn(items[0])}
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]R, len(items))
	idxChan := make(chan int, len(items))
	for i := range items {
		idxChan <- i
	}
	close(idxChan)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idxChan {
				results[i] = fn(items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
