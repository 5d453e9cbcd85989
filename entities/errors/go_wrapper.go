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

package errors

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	entcfg "github.com/weaviate/raftapply/entities/config"
)

func recoveryDisabled() bool {
	return entcfg.Enabled(os.Getenv("DISABLE_RECOVERY_ON_PANIC"))
}

func GoWrapper(f func(), logger logrus.FieldLogger) {
	go func() {
		defer func() {
			if !recoveryDisabled() {
				if r := recover(); r != nil {
					logger.Errorf("Recovered from panic: %v", r)
					debug.PrintStack()
				}
			}
		}()
		f()
	}()
}

// SafeCall runs f on the calling goroutine and turns a panic into an error,
// unless recovery was disabled through DISABLE_RECOVERY_ON_PANIC.
func SafeCall(f func() error) (err error) {
	defer func() {
		if recoveryDisabled() {
			return
		}
		if r := recover(); r != nil {
			debug.PrintStack()
			err = fmt.Errorf("panic occurred: %v", r)
		}
	}()
	return f()
}
