package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const accountsCollection = "users"

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection)}
}

// accountDoc is the stored shape. status is a string for partners and a
// bool for other user types, so it is decoded lazily.
type accountDoc struct {
	ID               string        `bson:"_id"`
	Email            string        `bson:"email"`
	PhoneNumber      string        `bson:"phoneNumber,omitempty"`
	AgencyName       string        `bson:"agencyName,omitempty"`
	DisplayName      string        `bson:"displayName,omitempty"`
	UserType         string        `bson:"userType"`
	Status           bson.RawValue `bson:"status"`
	PaymentOrderCode *int64        `bson:"paymentOrderCode,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt"`
	UpdatedAt        time.Time     `bson:"updatedAt"`
}

func (d *accountDoc) toDomain() (*domain.Account, error) {
	ut := domain.UserType(d.UserType)
	status, err := domain.ParseAccountStatus(ut, rawStatus(d.Status))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", d.ID, err)
	}
	return &domain.Account{
		ID:               d.ID,
		Email:            d.Email,
		PhoneNumber:      d.PhoneNumber,
		AgencyName:       d.AgencyName,
		DisplayName:      d.DisplayName,
		UserType:         ut,
		Status:           status,
		PaymentOrderCode: d.PaymentOrderCode,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

func rawStatus(v bson.RawValue) any {
	switch v.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return nil
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeBoolean:
		return v.Boolean()
	}
	// Any other BSON type is malformed for every user type.
	return v.Type.String()
}

func toDoc(a *domain.Account) bson.D {
	doc := bson.D{
		{Key: "_id", Value: a.ID},
		{Key: "email", Value: a.Email},
		{Key: "phoneNumber", Value: a.PhoneNumber},
		{Key: "agencyName", Value: a.AgencyName},
		{Key: "displayName", Value: a.DisplayName},
		{Key: "userType", Value: string(a.UserType)},
		{Key: "status", Value: a.Status.Raw(a.UserType)},
		{Key: "createdAt", Value: a.CreatedAt},
		{Key: "updatedAt", Value: a.UpdatedAt},
	}
	if a.PaymentOrderCode != nil {
		doc = append(doc, bson.E{Key: "paymentOrderCode", Value: *a.PaymentOrderCode})
	}
	return doc
}

// EnsureIndexes creates the lookup indexes the lifecycle relies on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "paymentOrderCode", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "userType", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if _, err := r.coll.InsertOne(ctx, toDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain()
}

// orderCodeFilter matches partner accounts only; a customer holding the same
// number is never a payment target.
func orderCodeFilter(code int64) bson.M {
	return bson.M{"paymentOrderCode": code, "userType": string(domain.UserTypePartner)}
}

func (r *AccountRepository) FindByOrderCode(ctx context.Context, code int64) (*domain.Account, error) {
	cur, err := r.coll.Find(ctx, orderCodeFilter(code), options.Find().SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("find by order code: %w", err)
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode by order code: %w", err)
	}

	switch len(docs) {
	case 0:
		return nil, domain.ErrAccountNotFound
	case 1:
		return docs[0].toDomain()
	default:
		return nil, domain.ErrAmbiguousOrderCode
	}
}

// updateSpec builds the filter and update document for a patch. The filter
// pins the user type matching the status variant, and the expected status
// when the patch carries one.
func updateSpec(id string, patch ports.AccountPatch, now time.Time) (bson.M, bson.D) {
	filter := bson.M{"_id": id}
	set := bson.D{{Key: "updatedAt", Value: now}}
	if patch.Status != nil {
		// The raw shape depends on the user type, which the write must not change.
		if patch.Status.Partner != "" {
			set = append(set, bson.E{Key: "status", Value: string(patch.Status.Partner)})
			filter["userType"] = string(domain.UserTypePartner)
		} else {
			set = append(set, bson.E{Key: "status", Value: patch.Status.Enabled})
			filter["userType"] = bson.M{"$ne": string(domain.UserTypePartner)}
		}
	}
	if patch.PaymentOrderCode != nil {
		set = append(set, bson.E{Key: "paymentOrderCode", Value: *patch.PaymentOrderCode})
	}
	if patch.ExpectStatus != nil {
		filter["userType"] = string(domain.UserTypePartner)
		filter["status"] = string(*patch.ExpectStatus)
	}
	return filter, bson.D{{Key: "$set", Value: set}}
}

// Update applies the patch with FindOneAndUpdate and derives the after
// snapshot from the returned before document.
func (r *AccountRepository) Update(ctx context.Context, id string, patch ports.AccountPatch) (*domain.Account, *domain.Account, error) {
	now := time.Now().UTC()
	filter, update := updateSpec(id, patch, now)

	var doc accountDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, r.missReason(ctx, id, patch)
		}
		return nil, nil, fmt.Errorf("update account: %w", err)
	}

	before, err := doc.toDomain()
	if err != nil {
		return nil, nil, err
	}
	return before, patch.Apply(before, now), nil
}

// missReason tells a failed precondition apart from a missing account.
func (r *AccountRepository) missReason(ctx context.Context, id string, patch ports.AccountPatch) error {
	if patch.ExpectStatus == nil {
		return domain.ErrAccountNotFound
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return fmt.Errorf("%w: account %s is no longer %s", domain.ErrStatusChanged, id, *patch.ExpectStatus)
}

// listFilter builds the query for List.
func listFilter(f ports.ListAccountsFilter) bson.M {
	filter := bson.M{}
	if f.UserType != "" {
		filter["userType"] = string(f.UserType)
	}
	if f.PartnerStatus != "" {
		filter["status"] = string(f.PartnerStatus)
	}
	return filter
}

func (r *AccountRepository) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, int64, error) {
	filter := listFilter(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		a, err := docs[i].toDomain()
		if err != nil {
			// Keep malformed records visible to the console with a zero status.
			a = &domain.Account{
				ID:          docs[i].ID,
				Email:       docs[i].Email,
				AgencyName:  docs[i].AgencyName,
				DisplayName: docs[i].DisplayName,
				UserType:    domain.UserType(docs[i].UserType),
				CreatedAt:   docs[i].CreatedAt,
				UpdatedAt:   docs[i].UpdatedAt,
			}
		}
		out = append(out, a)
	}
	return out, total, nil
}
