package registry

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/xdb/lib/store"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openRegistry(t *testing.T, path string) *Registry {
	t.Helper()
	r, err := Open(path, &xstore.Options{PrimaryKey: "label"})
	require.NoError(t, err)
	return r
}

func TestServerValidate(t *testing.T) {
	tests := []struct {
		name    string
		srv     Server
		wantErr bool
	}{
		{"valid", Server{Label: "web", Node: "n1", IP: "10.0.0.1", Port: 8080}, false},
		{"port zero", Server{Label: "web", Port: 0}, true},
		{"port too high", Server{Label: "web", Port: 65536}, true},
		{"max port", Server{Label: "web", Port: 65535}, false},
		{"node too long", Server{Node: strings.Repeat("n", 41), Port: 1}, true},
		{"label too long", Server{Label: strings.Repeat("l", 129), Port: 1}, true},
		{"max label", Server{Label: strings.Repeat("l", 128), Port: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.srv.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddGetList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers")
	r := openRegistry(t, path)

	web := Server{Label: "web", Node: "n1", IP: "10.0.0.1", Port: 8080, AccessKey: "secret"}
	id, err := r.Add(web)
	require.NoError(t, err)

	// the store has no primary key, equal labels are fine
	_, err = r.Add(Server{Label: "web", Node: "n2", IP: "10.0.0.2", Port: 8080})
	require.NoError(t, err)
	_, err = r.Add(Server{Label: "api", Node: "n1", IP: "10.0.0.1", Port: 9090})
	require.NoError(t, err)

	_, err = r.Add(Server{Label: "broken", Port: 70000})
	assert.True(t, store.IsCode(err, store.RetCValidation), "got %v", err)

	got, ok, err := r.Get(id)
	require.NoError(t, err)
	require.True(t, ok)
	web.ID = id
	assert.Equal(t, web, got)

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "api", list[0].Label)

	found, err := r.FindByAddress("10.0.0.1", 8080)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	byLabel, ok, err := r.FindByLabel("api")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9090, byLabel.Port)

	// Add flushes immediately
	require.NoError(t, r.Close())
	r = openRegistry(t, path)
	defer r.Close()
	list, err = r.List()
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestUpdateRemove(t *testing.T) {
	r := openRegistry(t, filepath.Join(t.TempDir(), "servers"))
	defer r.Close()

	id, err := r.Add(Server{Label: "web", Node: "n1", IP: "10.0.0.1", Port: 8080})
	require.NoError(t, err)

	ok, err := r.Update(id, FieldPort, 9000)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.Update(id, FieldPort, -1)
	assert.True(t, store.IsCode(err, store.RetCValidation), "got %v", err)
	_, err = r.Update(id, "_id", "other")
	assert.True(t, store.IsCode(err, store.RetCInvalidOperation), "got %v", err)

	got, _, _ := r.Get(id)
	assert.Equal(t, 9000, got.Port)

	ok, err = r.Update("missing", FieldLabel, "x")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Remove(id)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, _ = r.Get(id)
	assert.False(t, ok)
}
