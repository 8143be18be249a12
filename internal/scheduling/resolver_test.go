package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"counseldesk/internal/types"
)

// mockDirectory is a hand-rolled Directory over fixed maps. Errors can be
// injected per entity kind.
type mockDirectory struct {
	mu sync.Mutex

	cases   map[string]*types.Case
	clients map[string]*types.Client
	lawyers map[string]*types.Lawyer
	users   map[string]*types.User

	caseErr   error
	clientErr error
	lawyerErr error
	userErr   error
}

func (m *mockDirectory) CaseByID(_ context.Context, id string) (*types.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caseErr != nil {
		return nil, m.caseErr
	}
	return m.cases[id], nil
}

func (m *mockDirectory) ClientByID(_ context.Context, id string) (*types.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clientErr != nil {
		return nil, m.clientErr
	}
	return m.clients[id], nil
}

func (m *mockDirectory) LawyerByID(_ context.Context, id string) (*types.Lawyer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lawyerErr != nil {
		return nil, m.lawyerErr
	}
	return m.lawyers[id], nil
}

func (m *mockDirectory) UserByID(_ context.Context, id string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userErr != nil {
		return nil, m.userErr
	}
	return m.users[id], nil
}

func fullGraph() *mockDirectory {
	return &mockDirectory{
		cases: map[string]*types.Case{
			"c-1": {ID: "c-1", OwnerUserID: "u-owner", ClientID: "cl-1", LawyerID: "l-1"},
		},
		clients: map[string]*types.Client{
			"cl-1": {ID: "cl-1", OwnerUserID: "u-client"},
		},
		lawyers: map[string]*types.Lawyer{
			"l-1": {ID: "l-1", OwnerUserID: "u-lawyer"},
			"l-2": {ID: "l-2", OwnerUserID: "u-second"},
		},
		users: map[string]*types.User{
			"u-owner": {ID: "u-owner", TimeZone: "America/New_York"},
		},
	}
}

func TestResolve_FullGraph(t *testing.T) {
	dir := fullGraph()
	r := NewRecipientResolver(dir, testLogger())

	secondary := "l-2"
	h := &types.Hearing{ID: "h-1", CaseID: "c-1", SecondaryLawyerID: &secondary}
	c, _ := dir.CaseByID(context.Background(), "c-1")

	got := r.Resolve(context.Background(), c, h)
	assert.Equal(t, []string{"u-owner", "u-client", "u-lawyer", "u-second"}, got)
}

func TestResolve_Deduplicates(t *testing.T) {
	dir := fullGraph()
	// Client and lawyer are owned by the case owner.
	dir.clients["cl-1"].OwnerUserID = "u-owner"
	dir.lawyers["l-1"].OwnerUserID = "u-owner"
	r := NewRecipientResolver(dir, testLogger())

	c, _ := dir.CaseByID(context.Background(), "c-1")
	got := r.Resolve(context.Background(), c, &types.Hearing{ID: "h-1", CaseID: "c-1"})

	assert.Equal(t, []string{"u-owner"}, got)
}

func TestResolve_BrokenEdgesOmitted(t *testing.T) {
	dir := fullGraph()
	delete(dir.clients, "cl-1")
	delete(dir.lawyers, "l-1")
	r := NewRecipientResolver(dir, testLogger())

	c, _ := dir.CaseByID(context.Background(), "c-1")
	got := r.Resolve(context.Background(), c, &types.Hearing{ID: "h-1", CaseID: "c-1"})

	assert.Equal(t, []string{"u-owner"}, got)
}

func TestResolve_LookupErrorsTolerated(t *testing.T) {
	dir := fullGraph()
	dir.clientErr = errors.New("connection reset")
	dir.lawyerErr = errors.New("connection reset")
	r := NewRecipientResolver(dir, testLogger())

	c := &types.Case{ID: "c-1", OwnerUserID: "u-owner", ClientID: "cl-1", LawyerID: "l-1"}
	got := r.Resolve(context.Background(), c, &types.Hearing{ID: "h-1", CaseID: "c-1"})

	assert.Equal(t, []string{"u-owner"}, got, "lookup failures omit the recipient, never fail the caller")
}

func TestResolve_NilCase(t *testing.T) {
	r := NewRecipientResolver(fullGraph(), testLogger())
	got := r.Resolve(context.Background(), nil, &types.Hearing{ID: "h-1"})
	assert.Empty(t, got)
}

func TestTimeZones_Defaults(t *testing.T) {
	dir := fullGraph()
	dir.userErr = nil
	r := NewRecipientResolver(dir, testLogger())

	zones := r.TimeZones(context.Background(), []string{"u-owner", "u-missing"})

	assert.Equal(t, "America/New_York", zones["u-owner"])
	assert.Equal(t, "UTC", zones["u-missing"], "absent user defaults to UTC")
}

func TestTimeZones_LookupErrorDefaultsToUTC(t *testing.T) {
	dir := fullGraph()
	dir.userErr = errors.New("connection reset")
	r := NewRecipientResolver(dir, testLogger())

	zones := r.TimeZones(context.Background(), []string{"u-owner"})
	assert.Equal(t, "UTC", zones["u-owner"])
}
