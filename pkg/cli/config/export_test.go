package config

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, genaiAPIKey, openaiAPIKey string) *LLM {
	return &LLM{
		provider:     provider,
		genaiAPIKey:  genaiAPIKey,
		openaiAPIKey: openaiAPIKey,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, sqlitePath string) *Repository {
	return &Repository{
		backend:    backend,
		sqlitePath: sqlitePath,
	}
}

// NewAuthForTest creates an Auth config for testing purposes
func NewAuthForTest(jwksURL, noAuth string, admins ...string) *Auth {
	return &Auth{
		jwksURL: jwksURL,
		noAuth:  noAuth,
		admins:  admins,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewPipelineForTest creates a Pipeline config for testing purposes
func NewPipelineForTest(path string) *Pipeline {
	return &Pipeline{path: path}
}
