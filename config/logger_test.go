package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggingConfig_PrepareFileLog(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "debug", Destination: filepath.Join(dir, "test.log"), Mode: "overwrite"},
	}

	log, err := conf.Prepare(nil, false)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("debug message", zap.String("key", "value"))
	_ = log.Sync()

	data, err := os.ReadFile(conf.FileLogger.Destination)
	if err != nil {
		t.Fatalf("unable to read log: %v", err)
	}
	if !strings.Contains(string(data), "debug message") {
		t.Errorf("log file does not contain message:\n%s", data)
	}

	crashLog := filepath.Join(dir, "cyc-panic.log")
	if _, err := os.Stat(crashLog); err != nil {
		t.Fatalf("crash log should be prepared next to the log: %v", err)
	}
	if err := conf.ReleasePanicLog(); err != nil {
		t.Fatalf("ReleasePanicLog() error = %v", err)
	}
	if _, err := os.Stat(crashLog); !os.IsNotExist(err) {
		t.Errorf("empty crash log should be removed, stat error = %v", err)
	}
}

func TestLoggingConfig_ReleasePanicLogKeepsContent(t *testing.T) {
	dir := t.TempDir()
	conf := LoggingConfig{FileLogger: LoggerConfig{Level: "none", Destination: filepath.Join(dir, "cyc.log")}}

	crashLog := filepath.Join(dir, "cyc-panic.log")
	if err := os.WriteFile(crashLog, []byte("panic: boom"), 0644); err != nil {
		t.Fatalf("unable to write crash log: %v", err)
	}
	if err := conf.ReleasePanicLog(); err != nil {
		t.Fatalf("ReleasePanicLog() error = %v", err)
	}
	if _, err := os.Stat(crashLog); err != nil {
		t.Errorf("crash log with content should be kept: %v", err)
	}
	if err := (&LoggingConfig{}).ReleasePanicLog(); err != nil {
		t.Errorf("ReleasePanicLog() without file log error = %v", err)
	}
}

func TestLoggingConfig_PrepareNoFile(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none", Destination: filepath.Join(t.TempDir(), "never.log")},
	}

	log, err := conf.Prepare(nil, true)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Info("dropped")
	_ = log.Sync()

	if _, err := os.Stat(conf.FileLogger.Destination); !os.IsNotExist(err) {
		t.Errorf("log file should not be created, stat error = %v", err)
	}
}

func TestLoggingConfig_PrepareWithReport(t *testing.T) {
	dir := t.TempDir()
	rpt, err := (&ReporterConfig{Destination: filepath.Join(dir, "report.zip")}).Prepare()
	if err != nil {
		t.Fatalf("report Prepare() error = %v", err)
	}
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none", Destination: filepath.Join(dir, "forced.log"), Mode: "append"},
	}

	log, err := conf.Prepare(rpt, false)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("forced debug")
	_ = log.Sync()

	if _, ok := rpt.attachments["final.log"]; !ok {
		t.Error("log file was not stored in the report")
	}
	if err := rpt.Close(); err != nil {
		t.Errorf("report Close() error = %v", err)
	}
	data, err := os.ReadFile(conf.FileLogger.Destination)
	if err != nil {
		t.Fatalf("unable to read log: %v", err)
	}
	if !strings.Contains(string(data), "forced debug") {
		t.Errorf("report should force debug file logging:\n%s", data)
	}
}

func TestFileLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   zapcore.Level
		wantOK bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"normal", zapcore.InfoLevel, true},
		{"none", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := fileLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("fileLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOpenLogFile_Modes(t *testing.T) {
	name := filepath.Join(t.TempDir(), "mode.log")
	write := func(mode, text string) {
		t.Helper()
		f, err := openLogFile(name, mode)
		if err != nil {
			t.Fatalf("openLogFile(%s) error = %v", mode, err)
		}
		if _, err := f.WriteString(text); err != nil {
			t.Fatalf("write error = %v", err)
		}
		f.Close()
	}

	write("overwrite", "one")
	write("append", "two")
	if data, _ := os.ReadFile(name); string(data) != "onetwo" {
		t.Errorf("after append = %q, want %q", data, "onetwo")
	}
	write("overwrite", "three")
	if data, _ := os.ReadFile(name); string(data) != "three" {
		t.Errorf("after overwrite = %q, want %q", data, "three")
	}
}

func TestConsoleEnc_PlainErrors(t *testing.T) {
	enc := newEncoder(zapcore.EncoderConfig{MessageKey: "msg"})
	err := fmt.Errorf("outer: %w", errors.New("short"))

	buf, e := enc.EncodeEntry(zapcore.Entry{Message: "failed"}, []zapcore.Field{zap.Error(err)})
	if e != nil {
		t.Fatalf("EncodeEntry() error = %v", e)
	}
	defer buf.Free()
	if !strings.Contains(buf.String(), "outer: short") {
		t.Errorf("encoded entry = %q, want error text", buf.String())
	}
}
