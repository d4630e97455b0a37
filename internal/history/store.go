package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"scripttimer/internal/scheduler"
)

func (s *Store) AppendLog(entry RunRecord) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = scheduler.NewID()
	}

	file, err := os.OpenFile(s.Logs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// LoadLogs returns up to limit records, newest first. A limit of zero or
// less returns everything.
func (s *Store) LoadLogs(limit int) ([]RunRecord, error) {
	entries, err := s.readAll()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EndedAt.After(entries[j].EndedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// PruneLogs keeps the newest max records and rewrites the file. It reports
// how many records were dropped.
func (s *Store) PruneLogs(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	entries, err := s.readAll()
	if err != nil {
		return 0, err
	}
	if len(entries) <= max {
		return 0, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].EndedAt.Before(entries[j].EndedAt)
	})
	dropped := len(entries) - max
	entries = entries[dropped:]

	var buf strings.Builder
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return 0, fmt.Errorf("encode history: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tmp := s.Logs + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, s.Logs); err != nil {
		return 0, fmt.Errorf("replace history: %w", err)
	}
	return dropped, nil
}

func (s *Store) readAll() ([]RunRecord, error) {
	file, err := os.Open(s.Logs)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunRecord{}, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer file.Close()

	// Lines have no length limit; corrupt ones are skipped.
	entries := []RunRecord{}
	reader := bufio.NewReader(file)
	for {
		raw, err := reader.ReadBytes('\n')
		if line := strings.TrimSpace(string(raw)); line != "" {
			var entry RunRecord
			if jsonErr := json.Unmarshal([]byte(line), &entry); jsonErr == nil {
				entries = append(entries, entry)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
	}
	return entries, nil
}
