// Package cloudlog takes care of setting up a Google Cloud logger.
//
// Until Init succeeds every call only goes to the standard logger, which keeps
// tests and local runs free of any Cloud Logging dependency.
package cloudlog

import (
	"context"
	"log"
	"sync"

	logging "cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

var (
	// Logger is an already set up instance of *log.Logger
	Logger *log.Logger

	mu      sync.RWMutex
	client  *logging.Client
	working bool
)

// Init connects to Cloud Logging for projectID and mirrors every log line to logName.
func Init(ctx context.Context, projectID, logName string, opts ...option.ClientOption) error {
	c, err := logging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return err
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	client = c
	Logger = c.Logger(logName).StandardLogger(logging.Info)
	working = true
	return nil
}

// Close flushes buffered entries and stops mirroring to Cloud Logging.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		return nil
	}
	working = false
	Logger = nil
	err := client.Close()
	client = nil
	return err
}

func cloudLogger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if !working {
		return nil
	}
	return Logger
}

// Print is a proxy for Logger.Print
func Print(v ...interface{}) {
	log.Print(v...)
	if l := cloudLogger(); l != nil {
		l.Print(v...)
	}
}

// Println is a proxy for Logger.Println
func Println(v ...interface{}) {
	log.Println(v...)
	if l := cloudLogger(); l != nil {
		l.Println(v...)
	}
}

// Printf is a proxy for Logger.Printf
func Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
	if l := cloudLogger(); l != nil {
		l.Printf(format, v...)
	}
}

// Fatal is a proxy for Logger.Fatal. Cloud entries are flushed before exiting.
func Fatal(v ...interface{}) {
	if l := cloudLogger(); l != nil {
		l.Print(v...)
		Close()
	}
	log.Fatal(v...)
}

// Fatalf is a proxy for Logger.Fatalf. Cloud entries are flushed before exiting.
func Fatalf(format string, v ...interface{}) {
	if l := cloudLogger(); l != nil {
		l.Printf(format, v...)
		Close()
	}
	log.Fatalf(format, v...)
}
