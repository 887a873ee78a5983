package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	logOnce sync.Once
	logLine *log.Logger
)

// Logger returns the process-wide line writer. Every line is a complete
// JSON object; callers marshal their own payloads.
func Logger() *log.Logger {
	logOnce.Do(func() {
		logLine = log.New(os.Stdout, "", 0)
	})
	return logLine
}

// LogRequest renders one completed-request entry as a JSON line.
func LogRequest(entry map[string]any) {
	line, ok := renderLine(entry)
	if !ok {
		Logger().Println(`{"level":"error","msg":"request log entry dropped"}`)
		return
	}
	Logger().Println(line)
}

func renderLine(entry map[string]any) (string, bool) {
	data, err := json.Marshal(entry)
	if err != nil {
		return "", false
	}
	return string(data), true
}
