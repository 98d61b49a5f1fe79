package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Firestore struct {
	client   *firestore.Client
	taxonomy *taxonomyRepository
	version  *versionRepository
	rule     *ruleRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prepends prefix and "_" to every collection name
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.taxonomy.names.prefix = prefix
		f.version.names.prefix = prefix
		f.rule.names.prefix = prefix
	}
}

// New connects to Firestore. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, model.StoreUnavailable(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:   client,
		taxonomy: &taxonomyRepository{client: client},
		version:  &versionRepository{client: client},
		rule:     &ruleRepository{client: client},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Taxonomy() interfaces.TaxonomyRepository {
	return f.taxonomy
}

func (f *Firestore) Version() interfaces.RuleSetVersionRepository {
	return f.version
}

func (f *Firestore) Rule() interfaces.RuleRepository {
	return f.rule
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// collectionNames resolves collection names under an optional prefix
type collectionNames struct {
	prefix string
}

func (n collectionNames) name(base string) string {
	if n.prefix != "" {
		return n.prefix + "_" + base
	}
	return base
}

func (n collectionNames) taxonomy() string { return n.name("risk_taxonomy") }
func (n collectionNames) versions() string { return n.name("rule_set_versions") }
func (n collectionNames) rules() string    { return n.name("rules") }
func (n collectionNames) counters() string { return n.name("counters") }

// nextID increments the named counter document and returns the new value
func nextID(ctx context.Context, client *firestore.Client, names collectionNames, counter string) (int64, error) {
	counterRef := client.Collection(names.counters()).Doc(counter)

	var id int64
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				id = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": id,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}
		current, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not an integer", goerr.V("counter", counter))
		}

		id = current + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: id},
		})
	})
	if err != nil {
		return 0, model.StoreUnavailable(err, "failed to get next ID", goerr.V("counter", counter))
	}

	return id, nil
}

// domainKinds are errors raised inside transactions that must reach the caller unchanged
var domainKinds = []error{
	model.ErrNotFound,
	model.ErrDuplicateKey,
	model.ErrReferentialConflict,
	model.ErrInvalidTransition,
	model.ErrValidation,
	model.ErrStoreUnavailable,
}

// txError passes domain errors through and marks everything else as a store failure
func txError(err error, msg string, opts ...goerr.Option) error {
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return model.StoreUnavailable(err, msg, opts...)
}
