//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func Enabled(value string) bool {
	switch strings.ToLower(value) {
	case "on", "enabled", "1", "true":
		return true
	default:
		return false
	}
}

// DurationFromEnv reads a Go duration from the named variable, falling back
// to def when the variable is unset or cannot be parsed.
func DurationFromEnv(name string, def time.Duration) time.Duration {
	opt := os.Getenv(name)
	if opt == "" {
		return def
	}
	parsed, err := time.ParseDuration(opt)
	if err != nil {
		fmt.Printf("Invalid %s value: %s, using default %s\n", name, opt, def)
		return def
	}
	return parsed
}
