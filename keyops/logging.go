/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package keyops

import (
	"errors"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

func SetupLogging(logfile string) error {

	log.SetFlags(log.Lshortfile | log.Ltime)

	if logfile == "" {
		return errors.New("standard log (key log.file) not specified")
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	})

	return nil
}

// SetupCliLogging drops timestamps for interactive use unless verbose or
// debug output was asked for.
func SetupCliLogging() {
	if Globals.Verbose || Globals.Debug {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
