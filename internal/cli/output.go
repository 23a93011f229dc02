package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case LoginResult:
		o.printLoginResult(v)
	case BlockStatus:
		o.printBlockStatus(v)
	case MessageCount:
		o.printMessageCount(v)
	case Room:
		o.printRoom(v)
	case Members:
		o.printMembers(v)
	case RemoveMemberResult:
		o.printRemoveMemberResult(v)
	case PurgeResult:
		o.printPurgeResult(v)
	case Server:
		o.printServer(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// User response type (matches API)
type User struct {
	Name         string `json:"name"`
	LoggedIn     bool   `json:"logged_in"`
	Dummy        bool   `json:"dummy,omitempty"`
	ConnectionID int64  `json:"connection_id"`
	RoomNumber   int64  `json:"room_number"`
	Blocked      bool   `json:"blocked"`
	SuspendUntil int64  `json:"suspend_until,omitempty"`
	MessageCount int64  `json:"message_count"`
}

// LoginResult response type
type LoginResult struct {
	SessionReplaced      bool  `json:"session_replaced"`
	PreviousConnectionID int64 `json:"previous_connection_id,omitempty"`
}

// BlockStatus response type
type BlockStatus struct {
	State string `json:"state"`
	Until int64  `json:"until,omitempty"`
}

// MessageCount response type
type MessageCount struct {
	Count int64 `json:"count"`
}

// Room response type
type Room struct {
	Number     int64  `json:"number"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	ServerID   string `json:"server_id"`
	Population int64  `json:"population"`
}

// Members is a room member list
type Members []string

// RemoveMemberResult response type
type RemoveMemberResult struct {
	RoomDestroyed bool   `json:"room_destroyed"`
	NewOwner      string `json:"new_owner,omitempty"`
}

// PurgeResult response type
type PurgeResult struct {
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// Server response type
type Server struct {
	ID        string  `json:"id"`
	RoomCount int64   `json:"room_count"`
	Rooms     []int64 `json:"rooms"`
}

// RankedEntry is one leaderboard row
type RankedEntry struct {
	Rank  int64  `json:"rank"`
	Key   string `json:"key"`
	Score int64  `json:"score"`
}

// Leaderboard is a list of ranked entries
type Leaderboard []RankedEntry

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printUser(u User) {
	fmt.Printf("User: %s\n", u.Name)
	fmt.Printf("  Logged in:     %s\n", yesNo(u.LoggedIn))
	if u.Dummy {
		fmt.Printf("  Dummy:         yes\n")
	}
	fmt.Printf("  Connection ID: %d\n", u.ConnectionID)
	if u.RoomNumber != 0 {
		fmt.Printf("  Room:          %d\n", u.RoomNumber)
	} else {
		fmt.Printf("  Room:          (lobby)\n")
	}
	if u.Blocked {
		fmt.Printf("  Blocked until: %s\n", time.Unix(u.SuspendUntil, 0).Format(time.RFC3339))
	}
	fmt.Printf("  Messages:      %d\n", u.MessageCount)
}

func (o *Output) printLoginResult(r LoginResult) {
	if r.SessionReplaced {
		fmt.Printf("Logged in (replaced session on connection %d)\n", r.PreviousConnectionID)
	} else {
		fmt.Println("Logged in")
	}
}

func (o *Output) printBlockStatus(s BlockStatus) {
	switch s.State {
	case "active":
		fmt.Printf("Blocked until %s\n", time.Unix(s.Until, 0).Format(time.RFC3339))
	case "cleared":
		fmt.Println("Block expired and was cleared")
	default:
		fmt.Println("Not blocked")
	}
}

func (o *Output) printMessageCount(m MessageCount) {
	fmt.Printf("Message count: %d\n", m.Count)
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room %d: %s\n", r.Number, r.Title)
	fmt.Printf("  Owner:      %s\n", r.Owner)
	fmt.Printf("  Server:     %s\n", r.ServerID)
	fmt.Printf("  Population: %d\n", r.Population)
}

func (o *Output) printMembers(m Members) {
	if len(m) == 0 {
		fmt.Println("No members")
		return
	}
	fmt.Printf("Members (%d):\n", len(m))
	for _, name := range m {
		fmt.Printf("  %s\n", name)
	}
}

func (o *Output) printRemoveMemberResult(r RemoveMemberResult) {
	if r.RoomDestroyed {
		fmt.Println("Member removed; room destroyed")
		return
	}
	if r.NewOwner != "" {
		fmt.Printf("Member removed; ownership transferred to %s\n", r.NewOwner)
		return
	}
	fmt.Println("Member removed")
}

func (o *Output) printPurgeResult(r PurgeResult) {
	fmt.Printf("Purged room: %d removed, %d failed\n", r.Removed, r.Failed)
}

func (o *Output) printServer(s Server) {
	fmt.Printf("Server: %s\n", s.ID)
	fmt.Printf("  Rooms: %d\n", s.RoomCount)
	if len(s.Rooms) > 0 {
		nums := make([]string, len(s.Rooms))
		for i, n := range s.Rooms {
			nums[i] = fmt.Sprintf("%d", n)
		}
		fmt.Printf("  Hosting: %s\n", strings.Join(nums, ", "))
	}
}

func (o *Output) printLeaderboard(rows Leaderboard) {
	if len(rows) == 0 {
		fmt.Println("No entries")
		return
	}
	for _, row := range rows {
		fmt.Printf("%4d. %-24s %d\n", row.Rank, row.Key, row.Score)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
