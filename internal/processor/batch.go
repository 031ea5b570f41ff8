package processor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchItem 批处理中单个文件的结果
type BatchItem struct {
	Path   string
	Result *Result
	Err    error
}

// ProcessFiles 并发处理多个文件，结果顺序与 paths 一致。
// 单个文件失败不影响其他文件；ctx 取消后未开始的文件记录 ctx.Err()。
func (p *ResumeProcessor) ProcessFiles(ctx context.Context, paths []string, concurrency int, withSummary bool) []BatchItem {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	items := make([]BatchItem, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		items[i].Path = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = p.ProcessFile(ctx, path, withSummary)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	p.logger.Info().Int("total", len(items)).Int("failed", failed).Msg("批量处理完成")
	return items
}
