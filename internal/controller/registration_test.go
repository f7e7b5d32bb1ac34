package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationWithoutGeneration(t *testing.T) {
	rr := httptest.NewRecorder()
	NewRegistration().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRegistrationUpdateClaimsPages(t *testing.T) {
	storage := newStorage(t)
	net := newNetwork()
	net.set(origin+"/index.html", "<html>")

	reg := NewRegistration()

	v1 := newController(t, storage, net, "0.1.0", origin+"/index.html")
	report, err := reg.Update(context.Background(), v1)
	require.NoError(t, err)
	assert.Equal(t, []string{origin + "/index.html"}, report.Stored)
	assert.Same(t, v1, reg.Active())
	assert.Equal(t, Active, v1.Phase())

	v2 := newController(t, storage, net, "0.2.0", origin+"/index.html")
	_, err = reg.Update(context.Background(), v2)
	require.NoError(t, err)
	assert.Same(t, v2, reg.Active())
	assert.Equal(t, Active, v2.Phase())
	assert.Equal(t, Superseded, v1.Phase())

	assert.False(t, storage.Has("glb-viewer-0.1.0"))

	net.setOffline(true)
	rr := httptest.NewRecorder()
	reg.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>", rr.Body.String())
	assert.Equal(t, "hit", rr.Header().Get(CacheHeader))
}

func TestRegistrationRejectsActiveGeneration(t *testing.T) {
	reg := NewRegistration()
	c := newController(t, newStorage(t), newNetwork(), "0.1.0")

	_, err := reg.Update(context.Background(), c)
	require.NoError(t, err)

	_, err = reg.Update(context.Background(), c)
	assert.Error(t, err)
	assert.Same(t, c, reg.Active())
}

func TestRegistrationKeepsCurrentOnFailedInstall(t *testing.T) {
	storage := newStorage(t)
	reg := NewRegistration()

	v1 := newController(t, storage, newNetwork(), "0.1.0")
	_, err := reg.Update(context.Background(), v1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v2 := newController(t, storage, newNetwork(), "0.2.0")
	_, err = reg.Update(ctx, v2)
	assert.Error(t, err)
	assert.Same(t, v1, reg.Active())
	assert.Equal(t, Active, v1.Phase())
}

func TestVersionQuery(t *testing.T) {
	storage := newStorage(t)
	reg := NewRegistration()

	v1 := newController(t, storage, newNetwork(), "0.1.0")
	_, err := reg.Update(context.Background(), v1)
	require.NoError(t, err)
	v2 := newController(t, storage, newNetwork(), "0.2.0")
	_, err = reg.Update(context.Background(), v2)
	require.NoError(t, err)

	reply, ok := reg.Active().Message(Message{Type: TypeGetVersion})
	require.True(t, ok)
	assert.Equal(t, Message{Type: TypeVersion, Version: "0.2.0"}, reply)

	// a generation always answers with its own version
	reply, ok = v1.Message(Message{Type: TypeGetVersion})
	require.True(t, ok)
	assert.Equal(t, "0.1.0", reply.Version)

	_, ok = v2.Message(Message{Type: "PING"})
	assert.False(t, ok)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "installing", Installing.String())
	assert.Equal(t, "superseded", Superseded.String())
	assert.Equal(t, "invalid", Phase(42).String())
}
