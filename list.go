package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/aktagon/hourly-writer/store"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	slotStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	missStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

// loadIndex reads the index file, deriving it in memory when absent
func loadIndex(st *store.Store, now time.Time) (*store.Index, error) {
	idx, err := st.ReadIndex()
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	debugLog("no %s yet, scanning %s", store.IndexFile, st.Root())
	files, err := st.ListAllRecordFiles()
	if err != nil {
		return nil, err
	}
	idx, _ = store.BuildIndex(files, now)
	return idx, nil
}

// writeListing prints index entries newest first
func writeListing(w io.Writer, st *store.Store, idx *store.Index, limit int, withTitles bool) error {
	header := fmt.Sprintf("%d cycles (updated %s)", idx.TotalCount, idx.LastUpdated)
	if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
		return err
	}

	for i, entry := range idx.Entries {
		if limit > 0 && i >= limit {
			break
		}
		slot := fmt.Sprintf("%s %s:00", entry.Date, entry.Hour)
		fmt.Fprintf(w, "%s  %s\n", slotStyle.Render(slot), pathStyle.Render(entry.FileJSON))
		if !withTitles {
			continue
		}

		cycle, err := st.ReadCycle(entry.FileJSON)
		if err != nil {
			fmt.Fprintf(w, "    %s\n", missStyle.Render("unreadable: "+err.Error()))
			continue
		}
		for _, item := range cycle.Contents {
			fmt.Fprintf(w, "    %s %s\n", item.Icon, item.Title)
		}
	}
	return nil
}
