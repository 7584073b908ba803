package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelbus/pkg/models"
)

type recorder struct {
	got []*models.Message
}

func (r *recorder) receive(_ context.Context, msg *models.Message) error {
	r.got = append(r.got, msg)
	return nil
}

func msgAt(level int, labels models.Labels) *models.Message {
	return models.NewMessage(level, labels, "x")
}

func TestSend_DeliversSameMessage(t *testing.T) {
	root := New()
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	msg := models.NewMessage(10, models.Labels{}, "x")
	require.NoError(t, root.Send(context.Background(), msg))

	require.Len(t, rec.got, 1)
	assert.Same(t, msg, rec.got[0])
}

func TestSend_NilMessage(t *testing.T) {
	root := New()
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	require.NoError(t, root.Send(context.Background(), nil))
	assert.Empty(t, rec.got)
}

func TestSend_SeverityFloor(t *testing.T) {
	tests := []struct {
		name      string
		floor     int
		level     int
		delivered bool
	}{
		{name: "below floor", floor: 40, level: 30, delivered: false},
		{name: "at floor", floor: 40, level: 40, delivered: true},
		{name: "above floor", floor: 40, level: 50, delivered: true},
		{name: "negative level below zero floor", floor: 0, level: -1, delivered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New().SetLogLevel(tt.floor)
			rec := &recorder{}
			root.AddReceiver(rec.receive)

			require.NoError(t, root.Send(context.Background(), msgAt(tt.level, nil)))
			assert.Equal(t, tt.delivered, len(rec.got) == 1)
		})
	}
}

func TestSetLogLevel_Overwrites(t *testing.T) {
	root := New()
	_, ok := root.LogLevel()
	assert.False(t, ok)

	assert.Same(t, root, root.SetLogLevel(40))
	root.SetLogLevel(10)
	level, ok := root.LogLevel()
	assert.True(t, ok)
	assert.Equal(t, 10, level)

	root.ClearLogLevel()
	_, ok = root.LogLevel()
	assert.False(t, ok)
}

func TestSetLogLevel_NodeLocal(t *testing.T) {
	root := New()
	child := root.MatchAll()
	child.SetLogLevel(40)

	rootRec, childRec := &recorder{}, &recorder{}
	root.AddReceiver(rootRec.receive)
	child.AddReceiver(childRec.receive)

	require.NoError(t, root.Send(context.Background(), msgAt(30, nil)))
	assert.Len(t, rootRec.got, 1)
	assert.Empty(t, childRec.got)

	_, ok := root.LogLevel()
	assert.False(t, ok)
}

func TestSend_ReceiverOrder(t *testing.T) {
	root := New()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		root.AddReceiver(func(context.Context, *models.Message) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestAddReceiver_DuplicatesAreDistinct(t *testing.T) {
	root := New()
	rec := &recorder{}
	first := root.AddReceiver(rec.receive)
	root.AddReceiver(rec.receive)

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Len(t, rec.got, 2)

	first.Unsubscribe()
	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Len(t, rec.got, 3)
}

func TestRemoveReceiver_Idempotent(t *testing.T) {
	root := New()
	rec := &recorder{}
	sub := root.AddReceiver(rec.receive)
	other := root.AddReceiver(rec.receive)

	root.RemoveReceiver(sub)
	assert.NotPanics(t, func() {
		root.RemoveReceiver(sub)
		sub.Unsubscribe()
	})
	assert.Equal(t, 1, root.ReceiverCount())

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Len(t, rec.got, 1)

	other.Unsubscribe()
	assert.Equal(t, 0, root.ReceiverCount())
}

func TestRemoveReceiver_ForeignOrNil(t *testing.T) {
	a, b := New(), New()
	rec := &recorder{}
	sub := a.AddReceiver(rec.receive)
	ic := a.AddInterceptor(passThrough)

	b.RemoveReceiver(sub)
	a.RemoveReceiver(nil)
	a.RemoveReceiver(ic)
	assert.Equal(t, 1, a.ReceiverCount())
	assert.Equal(t, 1, a.InterceptorCount())

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
}

func passThrough(_ context.Context, msg *models.Message) (*models.Message, error) {
	return msg, nil
}

func TestInterceptors_RunInOrderAndReplaceMessage(t *testing.T) {
	root := New()
	var order []string
	root.AddInterceptor(func(_ context.Context, msg *models.Message) (*models.Message, error) {
		order = append(order, "first")
		c := msg.Clone()
		c.Value = "one"
		return c, nil
	})
	root.AddInterceptor(func(_ context.Context, msg *models.Message) (*models.Message, error) {
		order = append(order, "second:"+msg.Value.(string))
		msg.Value = "two"
		return msg, nil
	})
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	orig := models.NewMessage(10, nil, "zero")
	require.NoError(t, root.Send(context.Background(), orig))

	assert.Equal(t, []string{"first", "second:one"}, order)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "two", rec.got[0].Value)
	assert.Equal(t, "zero", orig.Value)
}

func TestInterceptors_DropStopsChain(t *testing.T) {
	root := New()
	var ran []int
	root.AddInterceptor(func(_ context.Context, msg *models.Message) (*models.Message, error) {
		ran = append(ran, 1)
		return msg, nil
	})
	root.AddInterceptor(func(context.Context, *models.Message) (*models.Message, error) {
		ran = append(ran, 2)
		return nil, nil
	})
	root.AddInterceptor(func(_ context.Context, msg *models.Message) (*models.Message, error) {
		ran = append(ran, 3)
		return msg, nil
	})
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Equal(t, []int{1, 2}, ran)
	assert.Empty(t, rec.got)
}

func TestInterceptors_ErrorPropagates(t *testing.T) {
	root := New()
	boom := errors.New("boom")
	root.AddInterceptor(func(context.Context, *models.Message) (*models.Message, error) {
		return nil, boom
	})
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	assert.ErrorIs(t, root.Send(context.Background(), msgAt(10, nil)), boom)
	assert.Empty(t, rec.got)
}

func TestRemoveInterceptor(t *testing.T) {
	root := New()
	sub := root.AddInterceptor(func(context.Context, *models.Message) (*models.Message, error) {
		return nil, nil
	})
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Empty(t, rec.got)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, root.InterceptorCount())

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Len(t, rec.got, 1)
}

func TestSend_ReceiverErrorAbortsSiblings(t *testing.T) {
	root := New()
	boom := errors.New("receiver failed")
	before, after := &recorder{}, &recorder{}
	root.AddReceiver(before.receive)
	root.AddReceiver(func(context.Context, *models.Message) error { return boom })
	root.AddReceiver(after.receive)

	err := root.Send(context.Background(), msgAt(10, nil))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, before.got, 1)
	assert.Empty(t, after.got)
}

func TestSend_ReceiverErrorPropagatesThroughAncestors(t *testing.T) {
	root := New()
	boom := errors.New("deep failure")
	child := root.MatchAll()
	grandchild := child.MatchAll()
	grandchild.AddReceiver(func(context.Context, *models.Message) error { return boom })

	sibling := &recorder{}
	root.AddReceiver(sibling.receive)

	assert.ErrorIs(t, root.Send(context.Background(), msgAt(10, nil)), boom)
	assert.Empty(t, sibling.got)
}

func TestSend_SnapshotDuringFanOut(t *testing.T) {
	root := New()
	late := &recorder{}
	var self *Subscription
	calls := 0
	self = root.AddReceiver(func(context.Context, *models.Message) error {
		calls++
		self.Unsubscribe()
		root.AddReceiver(late.receive)
		return nil
	})
	second := &recorder{}
	root.AddReceiver(second.receive)

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Equal(t, 1, calls)
	assert.Len(t, second.got, 1)
	assert.Empty(t, late.got)

	require.NoError(t, root.Send(context.Background(), msgAt(10, nil)))
	assert.Equal(t, 1, calls)
	assert.Len(t, second.got, 2)
	assert.Len(t, late.got, 1)
}

func TestSend_SameMessageAcrossTree(t *testing.T) {
	root := New()
	child := root.MatchAll()
	rootRec, childRec := &recorder{}, &recorder{}
	root.AddReceiver(rootRec.receive)
	child.AddReceiver(childRec.receive)

	msg := msgAt(10, nil)
	require.NoError(t, root.Send(context.Background(), msg))
	assert.Same(t, msg, rootRec.got[0])
	assert.Same(t, msg, childRec.got[0])
}

func TestSend_ScenarioE_Redaction(t *testing.T) {
	root := New()
	root.AddInterceptor(func(_ context.Context, msg *models.Message) (*models.Message, error) {
		msg.Value = "redacted"
		return msg, nil
	})
	rec := &recorder{}
	root.AddReceiver(rec.receive)

	require.NoError(t, root.Send(context.Background(), models.NewMessage(10, nil, "secret")))
	require.Len(t, rec.got, 1)
	assert.Equal(t, "redacted", rec.got[0].Value)
}

func TestStream_String(t *testing.T) {
	root := New()
	assert.Equal(t, "root", root.String())
	assert.Equal(t, "all", root.MatchAll().String())
	assert.Nil(t, root.Parent())
	assert.Nil(t, root.Filter())
}
