package gomero

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is a map of keyword to arbitrary data to specify configurations via keyword.
type Config map[string]interface{}

func NewConfig() Config {
	return Config(make(map[string]interface{}))
}

// Set casemaps the keyword to lower case and maps it to the given value.
func (c Config) Set(key string, value interface{}) {
	c[strings.ToLower(key)] = value
}

// GetString returns a string value of the given key with presence detection.
func (c Config) GetString(key string) (s string, found bool, err error) {
	if c == nil {
		return "", false, nil
	}
	var param interface{}
	lowerkey := strings.ToLower(key)
	if param, found = c[lowerkey]; found {
		var ok bool
		s, ok = param.(string)
		if !ok {
			err = fmt.Errorf("setting %q is not a string: %v", key, param)
		}
		return
	}
	return
}

// GetInt returns an int value of the given key with presence detection.
// String values are parsed.
func (c Config) GetInt(key string) (i int, found bool, err error) {
	var s string
	s, found, err = c.GetString(key)
	if err != nil || !found {
		return
	}
	i, err = strconv.Atoi(s)
	if err != nil {
		err = fmt.Errorf("setting %q should be an integer: %v", key, err)
	}
	return
}

// GetBool returns a bool value of the given key with presence detection.
// "true", "on", and "1" are true; "false", "off", and "0" are false.
func (c Config) GetBool(key string) (value, found bool, err error) {
	var s string
	s, found, err = c.GetString(key)
	if err != nil || !found {
		return
	}
	switch strings.ToLower(s) {
	case "true", "on", "1":
		value = true
	case "false", "off", "0":
		value = false
	default:
		err = fmt.Errorf("setting %q should be a boolean (true/false), got %q", key, s)
	}
	return
}
