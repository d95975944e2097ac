package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/LovationAdmin/finance-api/models"
)

const (
	usersCollection        = "users"
	transactionsCollection = "transactions"
	goalsCollection        = "goals"
	budgetsCollection      = "budgets"
)

// NewMongoStore wires the repositories to db. It does not create indexes;
// call EnsureIndexes once the server is reachable.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Backend:      "mongo",
		Users:        &mongoUsers{coll: db.Collection(usersCollection)},
		Transactions: &mongoTransactions{coll: db.Collection(transactionsCollection)},
		Goals:        &mongoGoals{coll: db.Collection(goalsCollection)},
		Budgets:      &mongoBudgets{coll: db.Collection(budgetsCollection)},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}

// EnsureIndexes creates the unique e-mail index and the owner indexes used
// by every list query.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}

	owned := map[string]bson.D{
		transactionsCollection: {{Key: "user", Value: 1}, {Key: "date", Value: -1}},
		goalsCollection:        {{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		budgetsCollection:      {{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	for name, keys := range owned {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
			return fmt.Errorf("create %s owner index: %w", name, err)
		}
	}
	return nil
}

// objectID maps a malformed hex id to ErrNotFound: a record with that id
// cannot exist.
func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, ErrNotFound
	}
	return oid, nil
}

func ownedFilter(id, userID string) (bson.M, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	owner, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": oid, "user": owner}, nil
}

func mongoErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// ============================================================================
// USERS
// ============================================================================

type userDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Username    string        `bson:"username"`
	Email       string        `bson:"email"`
	Password    string        `bson:"password"`
	TOTPSecret  string        `bson:"totpSecret,omitempty"`
	TOTPEnabled bool          `bson:"totpEnabled"`
	CreatedAt   time.Time     `bson:"createdAt"`
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		TOTPSecret:   d.TOTPSecret,
		TOTPEnabled:  d.TOTPEnabled,
		CreatedAt:    d.CreatedAt,
	}
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	doc := userDoc{
		ID:          bson.NewObjectID(),
		Username:    user.Username,
		Email:       strings.ToLower(user.Email),
		Password:    user.PasswordHash,
		TOTPSecret:  user.TOTPSecret,
		TOTPEnabled: user.TOTPEnabled,
		CreatedAt:   user.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (r *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	return doc.model(), nil
}

func (r *mongoUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *mongoUsers) UpdateTOTP(ctx context.Context, id, secret string, enabled bool) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"totpSecret": secret, "totpEnabled": enabled}})
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

type transactionDoc struct {
	ID          bson.ObjectID          `bson:"_id,omitempty"`
	User        bson.ObjectID          `bson:"user"`
	Amount      float64                `bson:"amount"`
	Type        models.TransactionType `bson:"type"`
	Category    string                 `bson:"category"`
	Description string                 `bson:"description"`
	Date        time.Time              `bson:"date"`
	CreatedAt   time.Time              `bson:"createdAt"`
}

func (d transactionDoc) model() models.Transaction {
	return models.Transaction{
		ID:          d.ID.Hex(),
		UserID:      d.User.Hex(),
		Amount:      d.Amount,
		Type:        d.Type,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type mongoTransactions struct {
	coll *mongo.Collection
}

func (r *mongoTransactions) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	owner, err := objectID(userID)
	if err != nil {
		return []models.Transaction{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *mongoTransactions) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc transactionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	t := doc.model()
	return &t, nil
}

func (r *mongoTransactions) Create(ctx context.Context, t *models.Transaction) error {
	owner, err := objectID(t.UserID)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	doc := transactionDoc{
		ID:          bson.NewObjectID(),
		User:        owner,
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		CreatedAt:   t.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	t.ID = doc.ID.Hex()
	return nil
}

func (r *mongoTransactions) Update(ctx context.Context, id, userID string, patch models.TransactionPatch) (*models.Transaction, error) {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Amount != nil {
		set["amount"] = *patch.Amount
	}
	if patch.Type != nil {
		set["type"] = *patch.Type
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}

	var doc transactionDoc
	if len(set) == 0 {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&doc)
	}
	if err != nil {
		return nil, mongoErr(err)
	}
	t := doc.model()
	return &t, nil
}

func (r *mongoTransactions) Delete(ctx context.Context, id, userID string) error {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// GOALS
// ============================================================================

type contributionDoc struct {
	Amount float64   `bson:"amount"`
	Date   time.Time `bson:"date"`
}

type goalDoc struct {
	ID            bson.ObjectID     `bson:"_id,omitempty"`
	User          bson.ObjectID     `bson:"user"`
	Title         string            `bson:"title"`
	TargetAmount  float64           `bson:"targetAmount"`
	CurrentAmount float64           `bson:"currentAmount"`
	Category      string            `bson:"category"`
	Description   string            `bson:"description"`
	Deadline      *time.Time        `bson:"deadline,omitempty"`
	Contributions []contributionDoc `bson:"contributions"`
	CreatedAt     time.Time         `bson:"createdAt"`
}

func (d goalDoc) model() models.Goal {
	g := models.Goal{
		ID:            d.ID.Hex(),
		UserID:        d.User.Hex(),
		Title:         d.Title,
		TargetAmount:  d.TargetAmount,
		CurrentAmount: d.CurrentAmount,
		Category:      d.Category,
		Description:   d.Description,
		Contributions: make([]models.Contribution, 0, len(d.Contributions)),
		CreatedAt:     d.CreatedAt.UTC(),
	}
	if d.Deadline != nil {
		deadline := d.Deadline.UTC()
		g.Deadline = &deadline
	}
	for _, c := range d.Contributions {
		g.Contributions = append(g.Contributions, models.Contribution{Amount: c.Amount, Date: c.Date.UTC()})
	}
	return g
}

type mongoGoals struct {
	coll *mongo.Collection
}

func (r *mongoGoals) ListByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	owner, err := objectID(userID)
	if err != nil {
		return []models.Goal{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("find goals: %w", err)
	}
	var docs []goalDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode goals: %w", err)
	}
	out := make([]models.Goal, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *mongoGoals) GetByID(ctx context.Context, id string) (*models.Goal, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc goalDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	g := doc.model()
	return &g, nil
}

func (r *mongoGoals) Create(ctx context.Context, g *models.Goal) error {
	owner, err := objectID(g.UserID)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	doc := goalDoc{
		ID:            bson.NewObjectID(),
		User:          owner,
		Title:         g.Title,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Category:      g.Category,
		Description:   g.Description,
		Deadline:      g.Deadline,
		Contributions: []contributionDoc{},
		CreatedAt:     g.CreatedAt,
	}
	for _, c := range g.Contributions {
		doc.Contributions = append(doc.Contributions, contributionDoc{Amount: c.Amount, Date: c.Date})
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	g.ID = doc.ID.Hex()
	return nil
}

func (r *mongoGoals) Update(ctx context.Context, id, userID string, patch models.GoalPatch) (*models.Goal, error) {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.TargetAmount != nil {
		set["targetAmount"] = *patch.TargetAmount
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Deadline != nil {
		set["deadline"] = *patch.Deadline
	}

	var doc goalDoc
	if len(set) == 0 {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&doc)
	}
	if err != nil {
		return nil, mongoErr(err)
	}
	g := doc.model()
	return &g, nil
}

func (r *mongoGoals) Delete(ctx context.Context, id, userID string) error {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Contribute is a single server-side $inc, so concurrent contributions never
// lose an update.
func (r *mongoGoals) Contribute(ctx context.Context, id, userID string, amount float64, at time.Time) (*models.Goal, error) {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$inc":  bson.M{"currentAmount": amount},
		"$push": bson.M{"contributions": contributionDoc{Amount: amount, Date: at}},
	}
	var doc goalDoc
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	g := doc.model()
	return &g, nil
}

// ============================================================================
// BUDGETS
// ============================================================================

type budgetDoc struct {
	ID          bson.ObjectID       `bson:"_id,omitempty"`
	User        bson.ObjectID       `bson:"user"`
	Category    string              `bson:"category"`
	Limit       float64             `bson:"limit"`
	Period      models.BudgetPeriod `bson:"period"`
	Description string              `bson:"description"`
	CreatedAt   time.Time           `bson:"createdAt"`
}

func (d budgetDoc) model() models.Budget {
	return models.Budget{
		ID:          d.ID.Hex(),
		UserID:      d.User.Hex(),
		Category:    d.Category,
		Limit:       d.Limit,
		Period:      d.Period,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type mongoBudgets struct {
	coll *mongo.Collection
}

func (r *mongoBudgets) ListByUser(ctx context.Context, userID string) ([]models.Budget, error) {
	owner, err := objectID(userID)
	if err != nil {
		return []models.Budget{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}
	var docs []budgetDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode budgets: %w", err)
	}
	out := make([]models.Budget, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (r *mongoBudgets) GetByID(ctx context.Context, id string) (*models.Budget, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc budgetDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mongoErr(err)
	}
	b := doc.model()
	return &b, nil
}

func (r *mongoBudgets) Create(ctx context.Context, b *models.Budget) error {
	owner, err := objectID(b.UserID)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	doc := budgetDoc{
		ID:          bson.NewObjectID(),
		User:        owner,
		Category:    b.Category,
		Limit:       b.Limit,
		Period:      b.Period,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mongoErr(err)
	}
	b.ID = doc.ID.Hex()
	return nil
}

func (r *mongoBudgets) Update(ctx context.Context, id, userID string, patch models.BudgetPatch) (*models.Budget, error) {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Limit != nil {
		set["limit"] = *patch.Limit
	}
	if patch.Period != nil {
		set["period"] = *patch.Period
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}

	var doc budgetDoc
	if len(set) == 0 {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, returnAfter).Decode(&doc)
	}
	if err != nil {
		return nil, mongoErr(err)
	}
	b := doc.model()
	return &b, nil
}

func (r *mongoBudgets) Delete(ctx context.Context, id, userID string) error {
	filter, err := ownedFilter(id, userID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return mongoErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
