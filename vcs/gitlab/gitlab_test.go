package gitlab

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jonwraymond/reposcore/observe"
	"github.com/jonwraymond/reposcore/vcs"
)

func TestProvider_ReturnsEmptyResult(t *testing.T) {
	var logs bytes.Buffer
	p := New(observe.Telemetry{Logger: observe.NewLoggerWithWriter("debug", &logs)})

	if p.Kind() != vcs.KindGitLab {
		t.Errorf("Kind() = %s, want gitlab", p.Kind())
	}

	res, err := p.SearchRepositories(context.Background(), vcs.SearchParams{Language: "go"})
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}
	if res.TotalCount != 0 || res.IncompleteResults || res.Items == nil || len(res.Items) != 0 {
		t.Errorf("result = %+v, want empty non-nil items", res)
	}
	if !strings.Contains(logs.String(), "not implemented") {
		t.Errorf("expected placeholder warning, logs = %s", logs.String())
	}
}

func TestProvider_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(observe.Telemetry{}).SearchRepositories(ctx, vcs.SearchParams{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
