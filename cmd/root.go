package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"audio-feature-extractor/internal/analyzer"
	"audio-feature-extractor/internal/logging"
	"audio-feature-extractor/internal/output"
	"audio-feature-extractor/internal/types"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var version = "1.0.0"

// errExtractionFailed 错误结果已写入 stdout，进程以 1 退出
var errExtractionFailed = errors.New("feature extraction failed")

// extractCommand 命令运行时状态
type extractCommand struct {
	input       string
	logger      *zap.Logger
	interactive bool // stderr 是终端时显示进度条
}

func newRootCmd(logger *zap.Logger, interactive bool) *cobra.Command {
	c := &extractCommand{
		logger:      logger,
		interactive: interactive,
	}

	cmd := &cobra.Command{
		Use:   "feature-extractor --input <path>",
		Short: "提取单个音频文件的速度、能量、响度、频谱通量和调性",
		Long: `feature-extractor 读取一个音频文件 (WAV, FLAC, MP3)，计算五个音频特征，
并在标准输出打印一行 JSON：

  {"bpm": .., "energy": .., "loudness": .., "spectralFlux": .., "musicalKey": ..}

失败时输出 {"error": "..."} 并以非零状态退出。日志写入标准错误。`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          c.run,
	}

	cmd.Flags().StringVar(&c.input, "input", "", "待分析的音频文件路径")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	cmd.SetVersionTemplate("feature-extractor version {{.Version}}\n")
	cmd.Version = version

	return cmd
}

// Execute 运行根命令并以对应状态码退出
func Execute() {
	interactive := term.IsTerminal(int(os.Stderr.Fd()))

	logger, err := logging.New(interactive)
	if err != nil {
		logger = zap.NewNop()
	}

	code := executeCommand(newRootCmd(logger, interactive), os.Args[1:])
	_ = logger.Sync()
	os.Exit(code)
}

// executeCommand 返回进程退出码：0 成功，1 提取失败，2 参数错误
func executeCommand(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errExtractionFailed):
		return 1
	default:
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return 2
	}
}

func (c *extractCommand) run(cmd *cobra.Command, _ []string) error {
	stdout := cmd.OutOrStdout()

	out, err := c.extract(cmd.ErrOrStderr())
	if err == nil {
		if _, err = stdout.Write(out); err == nil {
			return nil
		}
	}

	c.logger.Error("feature extraction failed", zap.String("input", c.input), zap.Error(err))
	_, _ = stdout.Write(output.EncodeError(err.Error()))
	return errExtractionFailed
}

// extract 执行提取并编码结果，任何错误或 panic 都作为 error 返回
func (c *extractCommand) extract(progressOut io.Writer) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	audioAnalyzer := analyzer.NewAnalyzer(types.DefaultExtractorConfig(), c.logger)

	var bar *progressbar.ProgressBar
	if c.interactive {
		bar = progressbar.NewOptions(analyzer.NumStages,
			progressbar.OptionSetWriter(progressOut),
			progressbar.OptionSetDescription("提取音频特征"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionClearOnFinish(),
		)
		audioAnalyzer.SetStageHook(func(stage string) {
			bar.Describe(stage)
			_ = bar.Add(1)
		})
	}

	record, err := audioAnalyzer.ExtractFile(c.input)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return nil, err
	}

	return output.EncodeFeatures(record), nil
}
