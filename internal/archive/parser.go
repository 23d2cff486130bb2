package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Station is one workstation folder (CSN1, CSN2, ...) in the export tree.
// One resource unit per folder.
type Station struct {
	Unit int
	Path string
}

var stationName = regexp.MustCompile(`(?i)^csn(\d+)$`)

// DiscoverStations lists the CSN workstation folders under root, sorted by
// workstation number.
func DiscoverStations(root string) ([]Station, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read export root: %w", err)
	}

	var stations []Station
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := stationName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		unit, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		stations = append(stations, Station{Unit: unit, Path: filepath.Join(root, e.Name())})
	}

	sort.Slice(stations, func(i, j int) bool { return stations[i].Unit < stations[j].Unit })
	return stations, nil
}

// FindExportFiles walks a station folder and returns every conversations.json
// in it. Some stations nest the export one level deeper, so the whole tree is
// walked.
func FindExportFiles(stationPath string) ([]string, error) {
	var files []string
	err := filepath.Walk(stationPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() && info.Name() == "conversations.json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", stationPath, err)
	}
	sort.Strings(files)
	return files, nil
}

// exportConversation mirrors the export's conversation object. Only the
// fields the pipeline needs are decoded.
type exportConversation struct {
	ConversationID string                `json:"conversation_id"`
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	CreateTime     float64               `json:"create_time"`
	UpdateTime     float64               `json:"update_time"`
	Mapping        map[string]exportNode `json:"mapping"`
}

type exportNode struct {
	Message *exportMessage `json:"message"`
}

type exportMessage struct {
	Author     exportAuthor  `json:"author"`
	CreateTime float64       `json:"create_time"`
	Content    exportContent `json:"content"`
}

type exportAuthor struct {
	Role string `json:"role"`
}

type exportContent struct {
	Parts []json.RawMessage `json:"parts"`
}

// ParseExportFile reads one conversations.json and returns its conversations
// tagged with the station number. An empty file yields no conversations and
// no error; a file that is not a JSON array of conversations is an error the
// caller logs and skips.
func ParseExportFile(path string, station int) ([]Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var raw []exportConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	convs := make([]Conversation, 0, len(raw))
	for idx, rc := range raw {
		conv := Conversation{
			ID:         rc.ConversationID,
			Title:      rc.Title,
			Station:    station,
			CreateTime: unixTime(rc.CreateTime),
			UpdateTime: unixTime(rc.UpdateTime),
		}
		if conv.ID == "" {
			conv.ID = rc.ID
		}
		if conv.ID == "" {
			conv.ID = fmt.Sprintf("unknown_csn%d_%d", station, idx)
		}

		for _, node := range rc.Mapping {
			if node.Message == nil {
				continue
			}
			role := node.Message.Author.Role
			ts := unixTime(node.Message.CreateTime)
			if ts.IsZero() {
				// The export sometimes omits per-message times; fall back to
				// the conversation's creation time so ordering stays sane.
				ts = conv.CreateTime
			}
			for _, part := range node.Message.Content.Parts {
				var text string
				if err := json.Unmarshal(part, &text); err != nil {
					continue // non-text part (image pointer etc.)
				}
				if strings.TrimSpace(text) == "" {
					continue
				}
				conv.Messages = append(conv.Messages, Message{
					Role:      role,
					Text:      text,
					Timestamp: ts,
				})
			}
		}

		sort.SliceStable(conv.Messages, func(i, j int) bool {
			return conv.Messages[i].Timestamp.Before(conv.Messages[j].Timestamp)
		})

		convs = append(convs, conv)
	}

	return convs, nil
}

// unixTime converts the export's fractional unix seconds to a time.Time.
func unixTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9)).UTC()
}
