package envreader

import (
	"io/ioutil"
	"os"
	"strconv"
)

// EnvReader accumulates missing-key errors across reads so callers can
// report every unset variable at once instead of failing one at a time.
type EnvReader struct {
	MissingKeys []string
	Errors      bool
}

func (r *EnvReader) GetEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	r.Errors = true
	r.MissingKeys = append(r.MissingKeys, key)
	return ""
}
func (r *EnvReader) GetFromFile(path string) string {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		r.Errors = true
		r.MissingKeys = append(r.MissingKeys, "file at: "+path)
		return ""
	}
	return string(content)
}
func (r *EnvReader) GetEnvOpt(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return ""
}
func (r *EnvReader) GetEnvBool(key string) bool {
	text := r.GetEnv(key)
	if value, err := strconv.ParseBool(text); err == nil {
		return value
	}
	return false
}
func (r *EnvReader) GetEnvBoolOpt(key string) bool {
	text := r.GetEnvOpt(key)
	if value, err := strconv.ParseBool(text); err == nil {
		return value
	}
	return false
}
func (r *EnvReader) GetEnvInt(key string) int {
	text := r.GetEnv(key)
	if value, err := strconv.Atoi(text); err == nil {
		return value
	}
	return 0
}
func (r *EnvReader) GetEnvIntOpt(key string) int {
	text := r.GetEnvOpt(key)
	if value, err := strconv.Atoi(text); err == nil {
		return value
	}
	return 0
}
