package main

import (
	"log"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/drag"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/reactive"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/scheduler"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
)

// enableDebugLogging routes the engine debug hooks to the standard logger
func enableDebugLogging() {
	logFn := func(args ...interface{}) {
		log.Println(args...)
	}

	scheduler.SetDebugLog(logFn)
	reactive.SetDebugLog(logFn)
	drag.SetDebugLog(logFn)
	snap.SetDebugLog(logFn)
	transform.SetDebugLog(logFn)
}
