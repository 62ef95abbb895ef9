package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/sifan077/DocLink/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syncPublisher(js JetStreamPublisher) *ViewEventPublisher {
	p := NewViewEventPublisher(js, nil)
	p.goAsync = func(fn func()) { fn() }
	return p
}

func subjectsOf(msgs []publishedMsg) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.subject)
	}
	sort.Strings(out)
	return out
}

func TestViewEventPublisher_Subjects(t *testing.T) {
	event := model.ViewRecorded{ClickID: "linkView_1", ViewID: "view_1", LinkID: "link_1", Timestamp: time.Now().UTC()}

	js := &fakeJetStream{}
	syncPublisher(js).Dispatch(context.Background(), event, true)
	assert.Equal(t, []string{model.ViewAnalyticsSubject, model.ViewNotificationSubject, model.ViewWebhookSubject}, subjectsOf(js.msgs))

	var decoded model.ViewRecorded
	require.NoError(t, json.Unmarshal(js.msgs[0].data, &decoded))
	assert.Equal(t, "view_1", decoded.ViewID)

	js = &fakeJetStream{}
	syncPublisher(js).Dispatch(context.Background(), event, false)
	assert.Equal(t, []string{model.ViewAnalyticsSubject, model.ViewWebhookSubject}, subjectsOf(js.msgs))
}

func TestViewEventPublisher_SurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	js := &fakeJetStream{}
	syncPublisher(js).Dispatch(ctx, model.ViewRecorded{ClickID: "c", ViewID: "v"}, false)
	assert.Len(t, js.msgs, 2)
}

func TestViewEventPublisher_ErrorsAreSwallowed(t *testing.T) {
	js := &fakeJetStream{err: errors.New("no responders")}
	assert.NotPanics(t, func() {
		syncPublisher(js).Dispatch(context.Background(), model.ViewRecorded{ClickID: "c", ViewID: "v"}, true)
	})
}
