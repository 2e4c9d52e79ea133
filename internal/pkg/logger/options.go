package logger

// CLI 命令行工具使用：控制台格式输出到 stderr，不带调用位置
func CLI(level string) (*Logger, error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Format = "console"
	cfg.Output = "stderr"
	cfg.EnableCaller = false
	cfg.EnableStacktrace = false
	return New(cfg)
}
