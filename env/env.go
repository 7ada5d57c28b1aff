package env

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	mu          sync.Mutex
	validations = make(map[string]string)
)

// RegisterValidation registers a validation tag for an environment variable. Validations
// are checked when VerifyEnvironment is called at process start.
func RegisterValidation(key string, tag string) {
	mu.Lock()
	defer mu.Unlock()
	validations[key] = tag
}

// VerifyEnvironment checks every registered environment variable against its validation
// tag and panics on the first violation. Call it once, after setDefaults.
func VerifyEnvironment() {
	mu.Lock()
	defer mu.Unlock()
	v := validator.New()
	for key, tag := range validations {
		if err := v.Var(viper.Get(key), tag); err != nil {
			panic(fmt.Sprintf("environment variable %s failed validation '%s': %s", key, tag, err))
		}
	}
}

// GetString returns the string value of an environment variable
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the int value of an environment variable
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns the int64 value of an environment variable
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns the bool value of an environment variable
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns the float64 value of an environment variable
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}
