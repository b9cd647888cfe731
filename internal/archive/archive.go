// Package archive stores the chat transcript of a room in object storage
// before the room is deleted.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/room"
)

// ObjectStore is the part of *minio.Client the archiver uses.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

type MessageLister interface {
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*chat.Message, error)
}

type Transcript struct {
	Room       *room.Room      `json:"room"`
	ArchivedAt time.Time       `json:"archived_at"`
	Messages   []*chat.Message `json:"messages"`
}

type ChatArchiver struct {
	objects    ObjectStore
	messages   MessageLister
	bucketName string
	log        *slog.Logger
	now        func() time.Time
}

func NewChatArchiver(objects ObjectStore, messages MessageLister, bucketName string, log *slog.Logger) *ChatArchiver {
	return &ChatArchiver{
		objects:    objects,
		messages:   messages,
		bucketName: bucketName,
		log:        log,
		now:        time.Now,
	}
}

// ObjectName is the key of a room's transcript
func ObjectName(roomID uuid.UUID) string {
	return fmt.Sprintf("rooms/%s/chat.json", roomID)
}

// ArchiveRoom uploads the full chat history of r. Rooms without messages
// are skipped.
func (a *ChatArchiver) ArchiveRoom(ctx context.Context, r *room.Room) error {
	messages, err := a.messages.ListMessages(ctx, r.ID, 0)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	if len(messages) == 0 {
		a.log.Debug("no chat to archive", "room_id", r.ID)
		return nil
	}

	data, err := json.Marshal(Transcript{
		Room:       r,
		ArchivedAt: a.now().UTC(),
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	objectName := ObjectName(r.ID)
	_, err = a.objects.PutObject(
		ctx,
		a.bucketName,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"room-id":  r.ID.String(),
				"messages": fmt.Sprint(len(messages)),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to upload to minio: %w", err)
	}

	a.log.Info("chat archived",
		"room_id", r.ID,
		"object", objectName,
		"messages", len(messages),
		"bytes", len(data))

	return nil
}

// Load reads back a transcript written by ArchiveRoom
func (a *ChatArchiver) Load(ctx context.Context, roomID uuid.UUID) (*Transcript, error) {
	object, err := a.objects.GetObject(ctx, a.bucketName, ObjectName(roomID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer object.Close()

	t := &Transcript{}
	if err := json.NewDecoder(object).Decode(t); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return t, nil
}
