package cli

var (
	IndexConfig    = indexConfig
	LoadDotEnv     = loadDotEnv
	PrintReport    = printReport
)
