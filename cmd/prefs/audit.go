package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	usertypes "github.com/goliatone/go-users/pkg/types"
)

// auditSink appends go-users activity records to a file as JSON lines.
type auditSink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func openAuditSink(path string) (*auditSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &auditSink{w: f}, nil
}

// Log implements usertypes.ActivitySink.
func (s *auditSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

func (s *auditSink) Close() error {
	return s.w.Close()
}
