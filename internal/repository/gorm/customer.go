package gorm

import (
	"context"
	"errors"

	"github.com/flexprice/invoicer/internal/cache"
	domainCustomer "github.com/flexprice/invoicer/internal/domain/customer"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var customerSortColumns = []string{"created_at", "updated_at", "name", "email"}

type customerRepository struct {
	client postgres.IClient
	log    *logger.Logger
	cache  cache.Cache
}

func NewCustomerRepository(client postgres.IClient, log *logger.Logger, cache cache.Cache) domainCustomer.Repository {
	return &customerRepository{
		client: client,
		log:    log,
		cache:  cache,
	}
}

func (r *customerRepository) Create(ctx context.Context, c *domainCustomer.Customer) error {
	r.log.Debugw("creating customer", "customer_id", c.ID, "tenant_id", c.UserID)

	if err := r.client.DB(ctx).Create(customerToModel(c)).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Customer already exists").
				WithReportableDetails(map[string]any{"customer_id": c.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create customer").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (*domainCustomer.Customer, error) {
	// reads inside a transaction may see uncommitted rows and skip the cache
	inTx := r.client.TxFromContext(ctx) != nil
	if !inTx {
		if cached := r.getCache(ctx, id); cached != nil {
			return cached, nil
		}
	}

	var m CustomerModel
	err := r.client.DB(ctx).
		Where("id = ? AND user_id = ?", id, types.GetTenantID(ctx)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Customer with ID %s was not found", id).
				WithReportableDetails(map[string]any{"customer_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get customer with ID %s", id).
			Mark(ierr.ErrDatabase)
	}

	c := customerFromModel(&m)
	if !inTx {
		r.setCache(ctx, c)
	}
	return c, nil
}

func (r *customerRepository) List(ctx context.Context, filter *types.CustomerFilter) ([]*domainCustomer.Customer, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}

	var rows []CustomerModel
	err := r.filtered(ctx, filter).
		Order(orderClause(filter.QueryFilter, customerSortColumns)).
		Limit(filter.GetLimit()).
		Offset(filter.GetOffset()).
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list customers").
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(rows, func(m CustomerModel, _ int) *domainCustomer.Customer {
		return customerFromModel(&m)
	}), nil
}

func (r *customerRepository) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}

	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count customers").
			Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func (r *customerRepository) filtered(ctx context.Context, filter *types.CustomerFilter) *gorm.DB {
	q := r.client.DB(ctx).Model(&CustomerModel{}).Where("user_id = ?", types.GetTenantID(ctx))
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}
	return q
}

func (r *customerRepository) Update(ctx context.Context, c *domainCustomer.Customer) error {
	result := r.client.DB(ctx).
		Model(&CustomerModel{}).
		Where("id = ? AND user_id = ?", c.ID, types.GetTenantID(ctx)).
		Updates(map[string]interface{}{
			"name":       c.Name,
			"email":      c.Email,
			"company":    c.Company,
			"address":    c.Address,
			"phone":      c.Phone,
			"updated_at": c.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to update customer").
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewErrorf("customer %s not found", c.ID).
			WithHintf("Customer with ID %s was not found", c.ID).
			Mark(ierr.ErrNotFound)
	}

	r.deleteCache(ctx, c.ID)
	return nil
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	result := r.client.DB(ctx).
		Where("id = ? AND user_id = ?", id, types.GetTenantID(ctx)).
		Delete(&CustomerModel{})
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to delete customer").
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewErrorf("customer %s not found", id).
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	r.deleteCache(ctx, id)
	return nil
}

func (r *customerRepository) HasInvoices(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Where("customer_id = ? AND user_id = ?", id, types.GetTenantID(ctx)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check customer invoices").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}

func (r *customerRepository) cacheKey(ctx context.Context, id string) string {
	return cache.GenerateKey(cache.PrefixCustomer, types.GetTenantID(ctx), id)
}

// getCache returns a copy so callers may mutate the result
func (r *customerRepository) getCache(ctx context.Context, id string) *domainCustomer.Customer {
	span := cache.StartCacheSpan(ctx, "customer", "get", map[string]interface{}{"customer_id": id})
	defer cache.FinishSpan(span)

	value, found := r.cache.Get(ctx, r.cacheKey(ctx, id))
	if !found {
		return nil
	}
	cached, ok := cache.UnmarshalCacheValue[domainCustomer.Customer](value)
	if !ok {
		return nil
	}
	c := *cached
	return &c
}

func (r *customerRepository) setCache(ctx context.Context, c *domainCustomer.Customer) {
	span := cache.StartCacheSpan(ctx, "customer", "set", map[string]interface{}{"customer_id": c.ID})
	defer cache.FinishSpan(span)

	copied := *c
	r.cache.Set(ctx, r.cacheKey(ctx, c.ID), &copied, 0)
}

// deleteCache drops the entry once the write has committed so a concurrent
// reader cannot cache the old row again in between
func (r *customerRepository) deleteCache(ctx context.Context, id string) {
	key := r.cacheKey(ctx, id)
	r.client.AfterCommit(ctx, func() {
		r.cache.Delete(context.WithoutCancel(ctx), key)
	})
}
