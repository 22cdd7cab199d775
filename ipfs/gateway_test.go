// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCid = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func TestPath(t *testing.T) {
	testDefs := []struct {
		uri      string
		expected string
		ok       bool
	}{
		{uri: "ipfs://" + testCid, expected: testCid, ok: true},
		{uri: "ipfs://ipfs/" + testCid + "/logo.png", expected: testCid + "/logo.png", ok: true},
		{uri: "/ipfs/" + testCid, expected: testCid, ok: true},
		{uri: "ipfs/" + testCid, expected: testCid, ok: true},
		{uri: testCid, expected: testCid, ok: true},
		{uri: "https://example.com/logo.png", ok: false},
		{uri: "ipfs://", ok: false},
		{uri: "", ok: false},
	}
	for _, testDef := range testDefs {
		path, ok := Path(testDef.uri)
		assert.Equal(t, testDef.ok, ok, testDef.uri)
		assert.Equal(t, testDef.expected, path, testDef.uri)
	}
}

func TestGatewayURLs(t *testing.T) {
	urls := GatewayURLs("ipfs://"+testCid, []string{"https://a.example/ipfs", "https://b.example/ipfs/"})
	assert.Equal(t, []string{
		"https://a.example/ipfs/" + testCid,
		"https://b.example/ipfs/" + testCid,
	}, urls)
	assert.Equal(t, []string{"https://example.com/x.png"}, GatewayURLs("https://example.com/x.png", nil))
	assert.Nil(t, GatewayURLs("", nil))
	assert.Len(t, GatewayURLs("ipfs://"+testCid, nil), len(DefaultGateways))
}

func TestProberResolve(t *testing.T) {
	var deadHits, liveHits atomic.Int32
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		deadHits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		liveHits.Add(1)
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer live.Close()

	p := NewProber([]string{dead.URL + "/ipfs/", live.URL + "/ipfs/"}, nil, nil)
	uri := "ipfs://" + testCid
	assert.Equal(t, live.URL+"/ipfs/"+testCid, p.Resolve(context.Background(), uri))
	// Answers are remembered
	assert.Equal(t, live.URL+"/ipfs/"+testCid, p.Resolve(context.Background(), uri))
	assert.Equal(t, int32(1), deadHits.Load())
	assert.Equal(t, int32(1), liveHits.Load())

	assert.Equal(t, "https://example.com/x.png", p.Resolve(context.Background(), "https://example.com/x.png"))
	assert.Empty(t, p.Resolve(context.Background(), ""))
}

func TestProberAllGatewaysDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	defer dead.Close()
	p := NewProber([]string{dead.URL + "/ipfs/", dead.URL + "/other/"}, nil, nil)
	assert.Equal(t, dead.URL+"/ipfs/"+testCid, p.Resolve(context.Background(), "ipfs://"+testCid))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestProberRemembersFailures(t *testing.T) {
	var hits atomic.Int32
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()
	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p := NewProber(
		[]string{dead.URL + "/a/", dead.URL + "/b/"},
		nil,
		nil,
		WithClock(clock.Now),
		WithFailureBackoff(time.Minute),
	)
	uri := "ipfs://" + testCid
	for range 3 {
		assert.Equal(t, dead.URL+"/a/"+testCid, p.Resolve(context.Background(), uri))
	}
	// Only the first call probes both gateways
	assert.Equal(t, int32(2), hits.Load())

	clock.Advance(time.Minute)
	p.Resolve(context.Background(), uri)
	assert.Equal(t, int32(4), hits.Load())
}

func TestProberDeduplicatesConcurrentProbes(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	p := NewProber([]string{slow.URL + "/ipfs/"}, nil, nil)
	uri := "ipfs://" + testCid

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.Resolve(context.Background(), uri)
		}()
	}
	require.Eventually(t, func() bool {
		return hits.Load() == 1
	}, time.Second, 5*time.Millisecond)
	// Let the other callers join the in-flight probe
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
	for _, res := range results {
		assert.Equal(t, slow.URL+"/ipfs/"+testCid, res)
	}
}

func TestProberCancelledCallerGetsFirstCandidate(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	defer close(release)
	p := NewProber([]string{slow.URL + "/ipfs/"}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Equal(t, slow.URL+"/ipfs/"+testCid, p.Resolve(ctx, "ipfs://"+testCid))
}
