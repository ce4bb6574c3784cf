package callstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
	"github.com/nerrad567/robotctl/internal/infrastructure/database"
	"github.com/nerrad567/robotctl/internal/robot"
	"github.com/nerrad567/robotctl/migrations"
)

// setupRepo returns a repository on a freshly migrated in-memory database.
func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteRepository(db.DB)
}

func seed(t *testing.T, repo *SQLiteRepository, recs ...Record) {
	t.Helper()
	for i := range recs {
		if err := repo.Create(context.Background(), &recs[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
}

// =============================================================================
// Create
// =============================================================================

func TestCreate_GeneratesIDAndTimestamp(t *testing.T) {
	repo := setupRepo(t)

	rec := Record{Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet, Msg: "OK"}
	if err := repo.Create(context.Background(), &rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if rec.ID == "" {
		t.Error("ID not generated")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	repo := setupRepo(t)

	seed(t, repo, Record{ID: "call-1", Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet})

	dup := Record{ID: "call-1", Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet}
	if err := repo.Create(context.Background(), &dup); err == nil {
		t.Error("Create() with duplicate ID should fail")
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	started := time.Date(2026, 10, 15, 9, 30, 0, 123456000, time.UTC)

	seed(t, repo, FromCallRecord(robot.CallRecord{
		ID:        "call-1",
		Tool:      robot.ToolSetCleaning,
		Nickname:  "Rosie",
		Action:    "s",
		Endpoint:  ecovacs.EndpointRobotControl,
		Method:    ecovacs.MethodPost,
		Code:      0,
		Msg:       "OK",
		Items:     1,
		Duration:  250 * time.Millisecond,
		StartedAt: started,
	}))

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(result.Calls))
	}

	got := result.Calls[0]
	if got.ID != "call-1" || got.Tool != robot.ToolSetCleaning || got.Nickname != "Rosie" || got.Action != "s" {
		t.Errorf("record = %+v", got)
	}
	if got.Method != ecovacs.MethodPost || got.Endpoint != ecovacs.EndpointRobotControl {
		t.Errorf("route = %s %s", got.Method, got.Endpoint)
	}
	if got.DurationMS != 250 || got.Items != 1 || got.Msg != "OK" {
		t.Errorf("outcome = %+v", got)
	}
	if !got.CreatedAt.Equal(started) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, started)
	}
}

func TestCreate_EmptyOptionalFields(t *testing.T) {
	repo := setupRepo(t)

	seed(t, repo, Record{Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet})

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Calls[0].Nickname != "" || result.Calls[0].Action != "" {
		t.Errorf("optional fields = %q, %q, want empty", result.Calls[0].Nickname, result.Calls[0].Action)
	}
}

// =============================================================================
// List
// =============================================================================

func TestList_Filters(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	seed(t, repo,
		Record{Tool: robot.ToolSetCleaning, Nickname: "Rosie", Endpoint: ecovacs.EndpointRobotControl, Method: ecovacs.MethodPost, Code: 0, CreatedAt: base},
		Record{Tool: robot.ToolSetCleaning, Nickname: "Dusty", Endpoint: ecovacs.EndpointRobotControl, Method: ecovacs.MethodPost, Code: ecovacs.FailureCode, CreatedAt: base.Add(time.Second)},
		Record{Tool: robot.ToolGetWorkState, Nickname: "Rosie", Endpoint: ecovacs.EndpointRobotControl, Method: ecovacs.MethodPost, Code: 3002, CreatedAt: base.Add(2 * time.Second)},
		Record{Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet, Code: ecovacs.FailureCode, CreatedAt: base.Add(3 * time.Second)},
	)

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
	}{
		{"all", Filter{}, 4},
		{"by tool", Filter{Tool: robot.ToolSetCleaning}, 2},
		{"by nickname", Filter{Nickname: "Rosie"}, 2},
		{"failed only", Filter{FailedOnly: true}, 2},
		{"tool and failed", Filter{Tool: robot.ToolSetCleaning, FailedOnly: true}, 1},
		{"no match", Filter{Nickname: "Nobody"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal || len(result.Calls) != tt.wantTotal {
				t.Errorf("total = %d, calls = %d, want %d", result.Total, len(result.Calls), tt.wantTotal)
			}
			if result.Calls == nil {
				t.Error("Calls is nil, want empty slice")
			}
		})
	}
}

func TestList_NewestFirst(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	seed(t, repo,
		Record{ID: "old", Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet, CreatedAt: base},
		Record{ID: "new", Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet, CreatedAt: base.Add(500 * time.Microsecond)},
		Record{ID: "mid", Tool: robot.ToolGetDeviceList, Endpoint: ecovacs.EndpointDeviceList, Method: ecovacs.MethodGet, CreatedAt: base.Add(100 * time.Microsecond)},
	)

	result, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if result.Calls[i].ID != id {
			t.Errorf("Calls[%d].ID = %q, want %q", i, result.Calls[i].ID, id)
		}
	}
}

func TestList_Pagination(t *testing.T) {
	repo := setupRepo(t)
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seed(t, repo, Record{
			ID:        fmt.Sprintf("call-%d", i),
			Tool:      robot.ToolGetDeviceList,
			Endpoint:  ecovacs.EndpointDeviceList,
			Method:    ecovacs.MethodGet,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	result, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 || result.Limit != 2 || result.Offset != 2 {
		t.Errorf("page = total %d limit %d offset %d", result.Total, result.Limit, result.Offset)
	}
	if len(result.Calls) != 2 || result.Calls[0].ID != "call-2" || result.Calls[1].ID != "call-1" {
		t.Errorf("calls = %+v", result.Calls)
	}
}

func TestList_LimitClamping(t *testing.T) {
	repo := setupRepo(t)

	tests := []struct {
		name       string
		filter     Filter
		wantLimit  int
		wantOffset int
	}{
		{"default", Filter{}, DefaultLimit, 0},
		{"negative", Filter{Limit: -5, Offset: -1}, DefaultLimit, 0},
		{"over max", Filter{Limit: 1000}, MaxLimit, 0},
		{"in range", Filter{Limit: 10, Offset: 3}, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Limit != tt.wantLimit || result.Offset != tt.wantOffset {
				t.Errorf("limit/offset = %d/%d, want %d/%d", result.Limit, result.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestRecord_Failed(t *testing.T) {
	if !(Record{Code: ecovacs.FailureCode}).Failed() {
		t.Error("Failed() = false for failure code")
	}
	if (Record{Code: 3002}).Failed() {
		t.Error("Failed() = true for upstream error code")
	}
}
