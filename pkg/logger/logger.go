// Package logger reports sync progress on the console through logrus.
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger receives per-object progress and diagnostics from the sync engine.
type Logger interface {
	Upload(localPath, s3Path string)
	Delete(s3Path string)
	Copy(s3Path string)
	Skip(localPath, s3Path, reason string)
	Info(message string)
	Warn(message string)
	Error(operation, path string, err error)
	Debug(message string)
}

// SyncLogger writes operations in the `aws s3 sync` style:
//
//	upload: dist/index.html to s3://bucket/index.html
//
// In dry-run mode every operation is prefixed with "(dryrun) ". Quiet mode
// keeps only warnings and errors.
type SyncLogger struct {
	Entry    *logrus.Entry
	IsDryRun bool
	IsQuiet  bool
}

// New creates a SyncLogger writing to out.
func New(out io.Writer, verbose, quiet, dryRun bool) *SyncLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
	switch {
	case verbose:
		l.SetLevel(logrus.DebugLevel)
	case quiet:
		l.SetLevel(logrus.WarnLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return &SyncLogger{
		Entry:    logrus.NewEntry(l),
		IsDryRun: dryRun,
		IsQuiet:  quiet,
	}
}

// WithSite returns a logger that tags every line with the site's local directory.
func (l *SyncLogger) WithSite(site string) Logger {
	return &SyncLogger{
		Entry:    l.Entry.WithField("site", site),
		IsDryRun: l.IsDryRun,
		IsQuiet:  l.IsQuiet,
	}
}

// WithBucket returns a logger that also tags every line with the bucket.
func (l *SyncLogger) WithBucket(bucket string) Logger {
	return &SyncLogger{
		Entry:    l.Entry.WithField("bucket", bucket),
		IsDryRun: l.IsDryRun,
		IsQuiet:  l.IsQuiet,
	}
}

// ForSite scopes l to a site when it supports it.
func ForSite(l Logger, site string) Logger {
	if s, ok := l.(interface{ WithSite(string) Logger }); ok {
		return s.WithSite(site)
	}
	return l
}

// ForBucket scopes l to a bucket when it supports it.
func ForBucket(l Logger, bucket string) Logger {
	if s, ok := l.(interface{ WithBucket(string) Logger }); ok {
		return s.WithBucket(bucket)
	}
	return l
}

func (l *SyncLogger) prefix() string {
	if l.IsDryRun {
		return "(dryrun) "
	}
	return ""
}

func (l *SyncLogger) Upload(localPath, s3Path string) {
	if l.IsQuiet {
		return
	}
	l.Entry.Infof("%supload: %s to %s", l.prefix(), localPath, s3Path)
}

func (l *SyncLogger) Delete(s3Path string) {
	if l.IsQuiet {
		return
	}
	l.Entry.Infof("%sdelete: %s", l.prefix(), s3Path)
}

func (l *SyncLogger) Copy(s3Path string) {
	if l.IsQuiet {
		return
	}
	l.Entry.Infof("%scopy: %s to %s", l.prefix(), s3Path, s3Path)
}

func (l *SyncLogger) Skip(localPath, s3Path, reason string) {
	l.Entry.WithField("reason", reason).Debugf("skip: %s to %s", localPath, s3Path)
}

func (l *SyncLogger) Info(message string) {
	if l.IsQuiet {
		return
	}
	l.Entry.Info(message)
}

func (l *SyncLogger) Warn(message string) {
	l.Entry.Warn(message)
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.Entry.WithError(err).Errorf("%s failed: %s", operation, path)
}

func (l *SyncLogger) Debug(message string) {
	l.Entry.Debug(message)
}

// NullLogger discards everything.
type NullLogger struct{}

func (NullLogger) Upload(localPath, s3Path string)         {}
func (NullLogger) Delete(s3Path string)                    {}
func (NullLogger) Copy(s3Path string)                      {}
func (NullLogger) Skip(localPath, s3Path, reason string)   {}
func (NullLogger) Info(message string)                     {}
func (NullLogger) Warn(message string)                     {}
func (NullLogger) Error(operation, path string, err error) {}
func (NullLogger) Debug(message string)                    {}
