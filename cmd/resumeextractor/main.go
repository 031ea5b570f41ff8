// resumeextractor 从 PDF/DOCX 简历中抽取结构化信息并输出为文本报告、JSON 或 CSV。
//
//	resumeextractor [flags] <file>...
//	cat resume.txt | resumeextractor --format json -
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"resume-extractor/internal/config"
	"resume-extractor/internal/export"
	"resume-extractor/internal/logger"
	"resume-extractor/internal/processor"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	configPath  string
	format      string
	summary     bool
	concurrency int
	outDir      string
	verbose     bool
}

// run 返回进程退出码：0 全部成功，1 至少一个文件失败，2 参数或配置错误
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	fs := pflag.NewFlagSet("resumeextractor", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "配置文件路径")
	fs.StringVarP(&opts.format, "format", "f", "text", "输出格式: text, json, csv")
	fs.BoolVarP(&opts.summary, "summary", "s", false, "生成简历摘要（需要配置摘要服务）")
	fs.IntVarP(&opts.concurrency, "concurrency", "j", 4, "并发处理的文件数")
	fs.StringVarP(&opts.outDir, "out", "o", "", "输出目录，每个输入写一个文件；为空时写到标准输出")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "用法: resumeextractor [flags] <file.pdf|file.docx|->...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 2
	}
	logCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     "pretty",
		TimeFormat: cfg.Logger.TimeFormat,
		Output:     stderr,
	}
	if opts.verbose {
		logCfg.Level = "debug"
	} else if logCfg.Level == "" || logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	log := logger.Init(logCfg)

	p, err := processor.NewFromConfig(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "初始化处理器失败: %v\n", err)
		return 2
	}
	if opts.summary && !p.HasSummarizer() {
		log.Warn().Msg("未配置摘要服务，忽略 --summary")
		opts.summary = false
	}

	items := collect(ctx, p, fs.Args(), stdin, opts)

	failed := 0
	for i, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", item.Path, item.Err)
			continue
		}
		if item.Result.SummaryError != "" {
			log.Warn().Str("source", item.Path).Str("error", item.Result.SummaryError).Msg("摘要生成失败")
		}
		if err := emit(item, format, opts.outDir, stdout, i > 0 && len(items) > 1); err != nil {
			if errors.Is(err, export.ErrNoTabularData) {
				log.Warn().Str("source", item.Path).Msg("没有技能或工作经历，跳过 CSV 输出")
				continue
			}
			failed++
			fmt.Fprintf(stderr, "%s: %v\n", item.Path, err)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// collect 处理所有输入。"-" 表示从标准输入读取纯文本。
func collect(ctx context.Context, p *processor.ResumeProcessor, args []string, stdin io.Reader, opts options) []processor.BatchItem {
	var paths []string
	stdinAt := -1
	for i, a := range args {
		if a == "-" {
			if stdinAt < 0 {
				stdinAt = i
			}
			continue
		}
		paths = append(paths, a)
	}

	items := p.ProcessFiles(ctx, paths, opts.concurrency, opts.summary)
	if stdinAt < 0 {
		return items
	}

	item := processor.BatchItem{Path: "stdin"}
	data, err := io.ReadAll(stdin)
	if err != nil {
		item.Err = fmt.Errorf("读取标准输入失败: %w", err)
	} else {
		item.Result, item.Err = p.ProcessText(ctx, string(data), "stdin", opts.summary)
	}
	return slices.Insert(items, stdinAt, item)
}

func emit(item processor.BatchItem, format export.Format, outDir string, stdout io.Writer, separate bool) error {
	if outDir == "" {
		if separate {
			fmt.Fprintln(stdout)
		}
		if format == export.FormatText {
			fmt.Fprintf(stdout, "===== %s =====\n", item.Path)
		}
		return write(stdout, item.Result, format)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(item.Path), filepath.Ext(item.Path))
	f, err := os.Create(filepath.Join(outDir, base+format.FileExtension()))
	if err != nil {
		return err
	}
	if err := write(f, item.Result, format); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return err
	}
	return f.Close()
}

func write(w io.Writer, res *processor.Result, format export.Format) error {
	switch format {
	case export.FormatJSON:
		return export.WriteJSON(w, res)
	case export.FormatCSV:
		return export.WriteCSV(w, res.Record)
	default:
		return export.WriteText(w, res.Record, res.Summary)
	}
}
