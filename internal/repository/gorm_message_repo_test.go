package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phostann/ybook/internal/domain"
)

func appendText(t *testing.T, repo *GormMessageRepository, roomID, senderID int64, content string) *domain.Message {
	t.Helper()

	msg := &domain.Message{
		RoomID:      roomID,
		SenderID:    senderID,
		MessageType: domain.MessageTypeText,
		Content:     content,
	}
	require.NoError(t, repo.Append(context.Background(), msg))
	return msg
}

func TestAppendAllocatesSequencePerRoom(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	first := appendText(t, repo, 1, 10, "hello")
	second := appendText(t, repo, 1, 11, "world")
	otherRoom := appendText(t, repo, 2, 10, "elsewhere")

	require.Equal(t, int64(1), first.SequenceID)
	require.Equal(t, int64(2), second.SequenceID)
	require.Equal(t, int64(1), otherRoom.SequenceID)

	max, err := repo.MaxSequence(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), max)
}

func TestConcurrentAppendsNeverShareSequence(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	const senders = 20
	var wg sync.WaitGroup
	errs := make(chan error, senders)

	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(senderID int64) {
			defer wg.Done()
			msg := &domain.Message{
				RoomID:      1,
				SenderID:    senderID,
				MessageType: domain.MessageTypeText,
				Content:     "concurrent",
			}
			errs <- repo.Append(ctx, msg)
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	messages, total, err := repo.Page(ctx, 1, 1, senders)
	require.NoError(t, err)
	require.Equal(t, int64(senders), total)

	seen := make(map[int64]bool)
	for _, msg := range messages {
		require.False(t, seen[msg.SequenceID], "duplicate sequence id %d", msg.SequenceID)
		seen[msg.SequenceID] = true
		require.GreaterOrEqual(t, msg.SequenceID, int64(1))
		require.LessOrEqual(t, msg.SequenceID, int64(senders))
	}
}

func TestPageOrdersBySequenceDescending(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		appendText(t, repo, 1, 10, "msg")
	}

	page, total, err := repo.Page(ctx, 1, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	require.Equal(t, int64(5), page[0].SequenceID)
	require.Equal(t, int64(4), page[1].SequenceID)

	page, _, err = repo.Page(ctx, 1, 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, int64(1), page[0].SequenceID)
}

func TestRecallPreservesIdentityAndSequence(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	msg := appendText(t, repo, 1, 10, "secret")

	require.NoError(t, repo.Recall(ctx, msg.ID, "This message has been recalled"))

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MessageStatusRecalled, got.Status)
	require.Equal(t, "This message has been recalled", got.Content)
	require.Equal(t, msg.ID, got.ID)
	require.Equal(t, msg.SequenceID, got.SequenceID)

	require.ErrorIs(t, repo.Recall(ctx, 9999, "x"), ErrMessageNotFound)
}

func TestIncrementReadCountExcludesReaderAndOldMessages(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	old := appendText(t, repo, 1, 10, "before")
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)
	fromOther := appendText(t, repo, 1, 10, "after")
	fromReader := appendText(t, repo, 1, 20, "own")

	require.NoError(t, repo.IncrementReadCount(ctx, 1, 20, cutoff))

	got, err := repo.GetByID(ctx, fromOther.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ReadCount)

	got, err = repo.GetByID(ctx, fromReader.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.ReadCount)

	got, err = repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.ReadCount)
}

func TestDeleteBySenderAndByRoom(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()

	appendText(t, repo, 1, 10, "a")
	appendText(t, repo, 1, 20, "b")
	appendText(t, repo, 2, 10, "c")

	require.NoError(t, repo.DeleteBySender(ctx, 1, 10))

	_, total, err := repo.Page(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	require.NoError(t, repo.DeleteByRoom(ctx, 2))
	_, total, err = repo.Page(ctx, 2, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)
}
