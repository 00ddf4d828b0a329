package marks

import "github.com/m-mizutani/goerr/v2"

// ErrParseAmbiguity is returned when a response expected to carry code only matched the fallback rule
var ErrParseAmbiguity = goerr.New("response has no recognizable marks")
