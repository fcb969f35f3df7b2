package data

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
)

const (
	collMessages = "messages"
	collUsers    = "users"
)

// MongoStore is the shared MongoDB handle behind the message and user repositories
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to MongoDB and ensures indexes
func OpenMongo(ctx context.Context, uri, database string, maxPoolSize int) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if maxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(maxPoolSize))
	}

	cli, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &MongoStore{client: cli, db: cli.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	collections := map[string][]mongo.IndexModel{
		collMessages: {
			{
				Keys:    bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("ix_sender_receiver_time"),
			},
			{
				Keys:    bson.D{{Key: "receiver", Value: 1}, {Key: "sender", Value: 1}, {Key: "read", Value: 1}},
				Options: options.Index().SetName("ix_receiver_sender_read"),
			},
		},
		collUsers: {
			{
				Keys:    bson.D{{Key: "phone_number", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_phone"),
			},
		},
	}

	for name, indexes := range collections {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects from MongoDB
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ========== Message ==========

type mongoAnnotation struct {
	Language     string   `bson:"language"`
	Tone         string   `bson:"tone"`
	Relationship string   `bson:"relationship"`
	Context      string   `bson:"context"`
	Sentiment    string   `bson:"sentiment"`
	Keywords     []string `bson:"keywords"`
	IsQuestion   bool     `bson:"is_question"`
	IsResponse   bool     `bson:"is_response"`
}

type mongoMessage struct {
	ID           string          `bson:"_id"`
	Sender       string          `bson:"sender"`
	Receiver     string          `bson:"receiver"`
	Text         string          `bson:"message"`
	OriginalText string          `bson:"original_message,omitempty"`
	AIProcessed  bool            `bson:"ai_processed"`
	Annotation   mongoAnnotation `bson:"annotation"`
	Embedding    []float32       `bson:"embedding,omitempty"`
	Delivered    bool            `bson:"delivered"`
	Read         bool            `bson:"read"`
	ReadAt       *time.Time      `bson:"read_at,omitempty"`
	CreatedAt    time.Time       `bson:"created_at"`
}

func toMongoMessage(m *domain.Message) mongoMessage {
	a := m.Annotation
	return mongoMessage{
		ID:           m.ID,
		Sender:       m.Sender,
		Receiver:     m.Receiver,
		Text:         m.Text,
		OriginalText: m.OriginalText,
		AIProcessed:  m.AIProcessed,
		Annotation: mongoAnnotation{
			Language:     string(a.Language),
			Tone:         string(a.Tone),
			Relationship: string(a.Relationship),
			Context:      a.Context,
			Sentiment:    string(a.Sentiment),
			Keywords:     a.Keywords,
			IsQuestion:   a.IsQuestion,
			IsResponse:   a.IsResponse,
		},
		Embedding: m.Embedding,
		Delivered: m.Delivered,
		Read:      m.Read,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}

func (d *mongoMessage) toDomain() domain.Message {
	msg := domain.Message{
		ID:           d.ID,
		Sender:       d.Sender,
		Receiver:     d.Receiver,
		Text:         d.Text,
		OriginalText: d.OriginalText,
		AIProcessed:  d.AIProcessed,
		Annotation: domain.Annotation{
			Language:     domain.Language(d.Annotation.Language),
			Tone:         domain.Tone(d.Annotation.Tone),
			Relationship: domain.Relationship(d.Annotation.Relationship),
			Context:      d.Annotation.Context,
			Sentiment:    domain.Sentiment(d.Annotation.Sentiment),
			Keywords:     d.Annotation.Keywords,
			IsQuestion:   d.Annotation.IsQuestion,
			IsResponse:   d.Annotation.IsResponse,
		},
		Embedding: d.Embedding,
		Delivered: d.Delivered,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		CreatedAt: d.CreatedAt,
	}
	msg.Annotation.Normalize()
	return msg
}

// mongoMessageRepo implements the Message repository on MongoDB
type mongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepo creates a new MongoDB Message repository
func NewMongoMessageRepo(s *MongoStore) repo.MessageRepo {
	return &mongoMessageRepo{coll: s.db.Collection(collMessages)}
}

func between(a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	}}
}

// Save inserts a new message
func (r *mongoMessageRepo) Save(ctx context.Context, msg *domain.Message) error {
	msg.ID = newMessageID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	// BSON dates carry millisecond precision
	msg.CreatedAt = msg.CreatedAt.Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, toMongoMessage(msg)); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// MarkDelivered sets the delivered flag
func (r *mongoMessageRepo) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"delivered": true}})
	if err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}
	return nil
}

// GetByID gets a message by ID
func (r *mongoMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var doc mongoMessage
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	msg := doc.toDomain()
	return &msg, nil
}

// ListBetween lists one page of the conversation, newest first
func (r *mongoMessageRepo) ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, between(a, b), opts)
}

// ListSince lists the conversation window starting at since, oldest first
func (r *mongoMessageRepo) ListSince(ctx context.Context, a, b string, since time.Time, limit int) ([]domain.Message, error) {
	filter := between(a, b)
	filter["created_at"] = bson.M{"$gte": since}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

// ListInvolving lists all messages sent or received by userID, newest first
func (r *mongoMessageRepo) ListInvolving(ctx context.Context, userID string) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{bson.M{"sender": userID}, bson.M{"receiver": userID}}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, filter, opts)
}

// MarkRead marks unread messages from sender to receiver as read
func (r *mongoMessageRepo) MarkRead(ctx context.Context, receiver, sender string, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"receiver": receiver, "sender": sender, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at, "delivered": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark read: %w", err)
	}
	return res.ModifiedCount, nil
}

// MarkMessageRead marks a single message as read
func (r *mongoMessageRepo) MarkMessageRead(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at, "delivered": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

func (r *mongoMessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Message, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	msgs := make([]domain.Message, len(docs))
	for i := range docs {
		msgs[i] = docs[i].toDomain()
	}
	return msgs, nil
}

// ========== User ==========

type mongoUser struct {
	UserID       string    `bson:"_id"`
	PhoneNumber  string    `bson:"phone_number"`
	Name         string    `bson:"name"`
	PasswordHash string    `bson:"password_hash"`
	Avatar       string    `bson:"avatar"`
	IsOnline     bool      `bson:"is_online"`
	LastSeen     time.Time `bson:"last_seen"`
	CreatedAt    time.Time `bson:"created_at"`
}

// mongoUserRepo implements the User repository on MongoDB
type mongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new MongoDB User repository
func NewMongoUserRepo(s *MongoStore) repo.UserRepo {
	return &mongoUserRepo{coll: s.db.Collection(collUsers)}
}

// Create inserts a new user
func (r *mongoUserRepo) Create(ctx context.Context, user *domain.User) error {
	doc := mongoUser{
		UserID:       user.UserID,
		PhoneNumber:  user.PhoneNumber,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Avatar:       user.Avatar,
		IsOnline:     user.IsOnline,
		LastSeen:     user.LastSeen,
		CreatedAt:    user.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByIdentifier finds a user by user ID or phone number, preferring the user ID match
func (r *mongoUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := r.findOne(ctx, bson.M{"_id": identifier})
	if err != nil || user != nil {
		return user, err
	}
	return r.findOne(ctx, bson.M{"phone_number": identifier})
}

// FindByUserID finds a user by user ID
func (r *mongoUserRepo) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": userID})
}

// SetOnline updates online status and last seen time
func (r *mongoUserRepo) SetOnline(ctx context.Context, userID string, online bool, at time.Time) error {
	_, err := r.coll.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"is_online": online, "last_seen": at}})
	if err != nil {
		return fmt.Errorf("failed to set online: %w", err)
	}
	return nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc mongoUser
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &domain.User{
		UserID:       doc.UserID,
		PhoneNumber:  doc.PhoneNumber,
		Name:         doc.Name,
		PasswordHash: doc.PasswordHash,
		Avatar:       doc.Avatar,
		IsOnline:     doc.IsOnline,
		LastSeen:     doc.LastSeen,
		CreatedAt:    doc.CreatedAt,
	}, nil
}
