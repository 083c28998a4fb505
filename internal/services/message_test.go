package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
)

func TestFirstContactUnreadFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.openProject(t)

	row, err := e.messageSvc.Send(ctx, e.freelancer, SendMessageInput{
		ProjectID:   p.ID,
		RecipientID: e.customer.UserID,
		Content:     "Hi, I can build this.",
	})
	require.NoError(t, err)
	assert.True(t, row.IsSender)
	assert.Equal(t, "frank", row.SenderName)
	assert.False(t, row.IsRead)

	stored, err := e.projects.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CounterpartyID)
	assert.Equal(t, e.freelancer.UserID, *stored.CounterpartyID)

	roomEvents := e.pub.byEvent(realtime.EventNewMessage)
	require.Len(t, roomEvents, 1)
	assert.Equal(t, p.ID, roomEvents[0].Room)

	badges := e.pub.byEvent(realtime.EventUnreadCount)
	require.Len(t, badges, 1)
	assert.Equal(t, e.customer.UserID, badges[0].User)
	assert.Equal(t, UnreadCountEvent{Count: 1}, badges[0].Data)

	unread, err := e.messageSvc.ListUnread(ctx, e.customer)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, row.ID, unread[0].ID)

	n, err := e.messageSvc.UnreadCount(ctx, e.customer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	msg, err := e.messageSvc.MarkRead(ctx, e.customer, row.ID)
	require.NoError(t, err)
	assert.True(t, msg.IsRead)
	require.NotNil(t, msg.ReadAt)

	n, err = e.messageSvc.UnreadCount(ctx, e.customer)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Reply goes back the other way.
	_, err = e.messageSvc.Send(ctx, e.customer, SendMessageInput{
		ProjectID:   p.ID,
		RecipientID: e.freelancer.UserID,
		Content:     "Great, when can you start?",
	})
	require.NoError(t, err)
	n, err = e.messageSvc.UnreadCount(ctx, e.freelancer)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := e.messageSvc.ListForProject(ctx, e.freelancer, p.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsSender)
	assert.False(t, rows[1].IsSender)
}

func TestMarkReadIsIdempotentAndRecipientOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "in_progress")

	row, err := e.messageSvc.Send(ctx, e.customer, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: "status?",
	})
	require.NoError(t, err)

	first, err := e.messageSvc.MarkRead(ctx, e.freelancer, row.ID)
	require.NoError(t, err)
	second, err := e.messageSvc.MarkRead(ctx, e.freelancer, row.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReadAt, second.ReadAt)

	_, err = e.messageSvc.MarkRead(ctx, e.customer, row.ID)
	requireKind(t, err, apperr.KindNotFound)

	_, err = e.messageSvc.MarkRead(ctx, e.freelancer, uuid.New())
	requireKind(t, err, apperr.KindNotFound)
}

func TestSendKeepsContentVerbatim(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "approved")

	content := "  line one\n\t<b>bold</b> & \"quoted\"  "
	row, err := e.messageSvc.Send(ctx, e.customer, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: content,
	})
	require.NoError(t, err)
	assert.Equal(t, content, row.Content)

	events := e.pub.byEvent(realtime.EventNewMessage)
	require.Len(t, events, 1)
	ev, ok := events[0].Data.(MessageEvent)
	require.True(t, ok)
	assert.Equal(t, content, ev.Content)
	assert.Equal(t, e.customer.UserID, ev.SenderID)
	assert.Equal(t, "carol", ev.SenderName)
}

func TestSendValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "approved")

	cases := []struct {
		name string
		in   SendMessageInput
		kind apperr.Kind
	}{
		{"blank content", SendMessageInput{ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: " \n\t"}, apperr.KindValidation},
		{"too long", SendMessageInput{ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: strings.Repeat("é", maxMessageRunes+1)}, apperr.KindValidation},
		{"missing recipient", SendMessageInput{ProjectID: p.ID, Content: "hi"}, apperr.KindValidation},
		{"unknown project", SendMessageInput{ProjectID: uuid.New(), RecipientID: e.freelancer.UserID, Content: "hi"}, apperr.KindNotFound},
		{"wrong recipient", SendMessageInput{ProjectID: p.ID, RecipientID: e.rival.UserID, Content: "hi"}, apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.messageSvc.Send(ctx, e.customer, tc.in)
			requireKind(t, err, tc.kind)
		})
	}

	_, err := e.messageSvc.Send(ctx, e.customer, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: strings.Repeat("é", maxMessageRunes),
	})
	require.NoError(t, err)
}

func TestNonParticipantsAreRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "in_progress")

	// Counter-party is taken, so a second freelancer cannot claim it.
	_, err := e.messageSvc.Send(ctx, e.rival, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.customer.UserID, Content: "me too",
	})
	requireKind(t, err, apperr.KindForbidden)

	// Customers never claim.
	open := e.openProject(t)
	_, err = e.messageSvc.Send(ctx, e.customer2, SendMessageInput{
		ProjectID: open.ID, RecipientID: e.customer.UserID, Content: "hello",
	})
	requireKind(t, err, apperr.KindForbidden)

	_, err = e.messageSvc.ListForProject(ctx, e.rival, p.ID)
	requireKind(t, err, apperr.KindForbidden)

	_, err = e.messageSvc.ListForProject(ctx, e.rival, uuid.New())
	requireKind(t, err, apperr.KindNotFound)

	_, err = e.messageSvc.Chat(ctx, e.rival, p.ID, e.customer.UserID)
	requireKind(t, err, apperr.KindForbidden)
}

func TestFirstContactRaceHasOneWinner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.openProject(t)

	_, err := e.messageSvc.Send(ctx, e.rival, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.customer.UserID, Content: "first",
	})
	require.NoError(t, err)

	_, err = e.messageSvc.Send(ctx, e.freelancer, SendMessageInput{
		ProjectID: p.ID, RecipientID: e.customer.UserID, Content: "second",
	})
	requireKind(t, err, apperr.KindForbidden)

	stored, err := e.projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, e.rival.UserID, *stored.CounterpartyID)
}

func TestChatReturnsOnlyThePair(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "approved")

	for _, c := range []string{"a", "b"} {
		_, err := e.messageSvc.Send(ctx, e.customer, SendMessageInput{ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: c})
		require.NoError(t, err)
	}
	_, err := e.messageSvc.Send(ctx, e.freelancer, SendMessageInput{ProjectID: p.ID, RecipientID: e.customer.UserID, Content: "c"})
	require.NoError(t, err)

	rows, err := e.messageSvc.Chat(ctx, e.customer, p.ID, e.freelancer.UserID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].Content)
	assert.True(t, rows[0].IsSender)
	assert.False(t, rows[2].IsSender)

	_, err = e.messageSvc.Chat(ctx, e.customer, p.ID, e.rival.UserID)
	requireKind(t, err, apperr.KindValidation)
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.pairedProject(t, "approved")

	row, err := e.messageSvc.Send(ctx, e.customer, SendMessageInput{ProjectID: p.ID, RecipientID: e.freelancer.UserID, Content: "oops"})
	require.NoError(t, err)

	requireKind(t, e.messageSvc.Delete(ctx, e.freelancer, row.ID), apperr.KindNotFound)
	require.NoError(t, e.messageSvc.Delete(ctx, e.customer, row.ID))

	n, err := e.messageSvc.UnreadCount(ctx, e.freelancer)
	require.NoError(t, err)
	assert.Zero(t, n)

	badges := e.pub.byEvent(realtime.EventUnreadCount)
	require.NotEmpty(t, badges)
	assert.Equal(t, UnreadCountEvent{Count: 0}, badges[len(badges)-1].Data)
}

func TestPrivateProjectCannotBeClaimed(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	private := e.openProject(t)
	private.IsPublic = false
	e.projects.Put(private)

	_, err := e.messageSvc.Send(ctx, e.rival, SendMessageInput{
		ProjectID: private.ID, RecipientID: e.customer.UserID, Content: "let me in",
	})
	requireKind(t, err, apperr.KindNotFound)

	stored, err := e.projects.Get(ctx, private.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CounterpartyID)

	rival := e.rival
	_, err = e.projectSvc.Get(ctx, &rival, private.ID)
	requireKind(t, err, apperr.KindNotFound)
	_, err = e.messageSvc.ListForProject(ctx, e.rival, private.ID)
	requireKind(t, err, apperr.KindNotFound)
	_, err = e.projectSvc.Update(ctx, e.rival, private.ID, ProjectInput{})
	requireKind(t, err, apperr.KindNotFound)
	assert.Empty(t, e.pub.byEvent(realtime.EventNewMessage))

	// The creator can still hand a private project to a freelancer.
	cp := e.freelancer.UserID
	_, err = e.projectSvc.Approve(ctx, e.customer, private.ID, &cp)
	require.NoError(t, err)
	_, err = e.messageSvc.Send(ctx, e.freelancer, SendMessageInput{
		ProjectID: private.ID, RecipientID: e.customer.UserID, Content: "thanks",
	})
	require.NoError(t, err)
}
