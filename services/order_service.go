package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiwio/print-broker-api/models"
	"gorm.io/gorm"
)

// OrderService owns the order lifecycle state machine: phase transitions,
// the manufacturer assignment/rejection protocol, and the authorization
// rules around who may read or mutate an order. It never takes an
// application-level lock; cross-request races are settled by conditional
// single-row updates.
type OrderService struct {
	db   *gorm.DB
	blob BlobStore
}

var orderServiceInstance *OrderService

// NewOrderService creates an order service over the given collaborators
func NewOrderService(db *gorm.DB, blob BlobStore) *OrderService {
	return &OrderService{db: db, blob: blob}
}

// InitOrderService initializes the global order service instance
func InitOrderService(db *gorm.DB, blob BlobStore) *OrderService {
	orderServiceInstance = NewOrderService(db, blob)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

// CreateOrderInput is the payload for Create.
type CreateOrderInput struct {
	FileID      string             `json:"file_id" binding:"required"`
	Notes       string             `json:"notes"`
	OrderType   string             `json:"order_type" binding:"required,oneof=FDM SLA"`
	OrderDetail models.OrderDetail `json:"order_detail" binding:"required"`
	Quantity    int                `json:"quantity"`
}

// Create places a new order for the given customer. The referenced model
// file must already exist in the blob store with positive volume metadata.
// Estimations are computed exactly once here and stored immutably.
func (s *OrderService) Create(ctx context.Context, user models.User, in CreateOrderInput) (*models.Order, error) {
	if user.Role != models.RoleCustomer {
		return nil, permissionErr("FORBIDDEN", "Only customers can create orders")
	}

	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := validateOrderDetail(in.OrderType, in.OrderDetail); err != nil {
		return nil, err
	}

	obj, err := s.blob.Get(ctx, in.FileID)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, notFoundErr("FILE_NOT_FOUND", "Referenced model file does not exist")
		}
		return nil, upstreamErr("blob store lookup failed", err)
	}

	volume, err := strconv.ParseFloat(obj.Metadata["volume_cm3"], 64)
	if err != nil || volume <= 0 {
		return nil, validationErr("MISSING_VOLUME", "Model file has no volume metadata")
	}

	estimate, err := CalculatePrice(PricingInput{
		VolumeCM3:   volume,
		Material:    in.OrderDetail.Material,
		Brand:       in.OrderDetail.Brand,
		OrderType:   in.OrderType,
		Infill:      in.OrderDetail.Infill,
		LayerHeight: in.OrderDetail.LayerHeight,
		Quantity:    in.Quantity,
	})
	if err != nil {
		return nil, err
	}

	// Best-effort preview lookup: a rendered thumbnail may have been stored
	// against this model file. Its absence never fails the order.
	previewID := ""
	if id, err := s.blob.FindByMetadata(ctx, "model_file_id", in.FileID); err == nil {
		previewID = id
	}

	order := models.Order{
		OrderID:     uuid.NewString(),
		CustomerID:  user.ID,
		FileID:      in.FileID,
		PreviewID:   previewID,
		OrderType:   in.OrderType,
		OrderDetail: in.OrderDetail,
		Notes:       in.Notes,
		Quantity:    in.Quantity,
		Estimations: models.Estimations{
			EstimatedWeight: estimate.EstimatedWeight,
			EstimatedCost:   estimate.EstimatedCost,
		},
		TimingTable: models.TimingTable{
			models.PhaseOrderReceived: models.NewTimingEntry(user.ID, models.PhaseOrderReceived),
		},
		RejectedManufacturers: models.UintList{},
	}

	if err := s.db.Create(&order).Error; err != nil {
		return nil, upstreamErr("failed to create order", err)
	}
	return &order, nil
}

func validateOrderDetail(orderType string, d models.OrderDetail) error {
	if d.Material == "" || d.Brand == "" {
		return validationErr("INVALID_ORDER_DETAIL", "Material and brand are required")
	}
	switch orderType {
	case models.OrderTypeFDM:
		if d.BottomTexture == "" || d.NozzleSize <= 0 {
			return validationErr("INVALID_ORDER_DETAIL", "FDM orders require bottom_texture and nozzle_size")
		}
	case models.OrderTypeSLA:
		if d.ResinType == "" || d.UVCuring == "" {
			return validationErr("INVALID_ORDER_DETAIL", "SLA orders require resin_type and uv_curing")
		}
	default:
		return validationErr("INVALID_ORDER_TYPE", fmt.Sprintf("Unknown order type %q", orderType))
	}
	return nil
}

// OrderSummary is the listing projection shared by the unassigned pool and
// the adopted-orders view. It never carries the rejection list.
type OrderSummary struct {
	OrderID       string             `json:"order_id"`
	OrderIDShort  string             `json:"order_id_short"`
	PreviewID     string             `json:"preview_id"`
	CustomerName  string             `json:"customer_name"`
	IsCancelled   bool               `json:"is_cancelled"`
	OrderType     string             `json:"order_type"`
	Quantity      int                `json:"quantity"`
	OrderDetail   models.OrderDetail `json:"order_detail"`
	ReceivedAt    *time.Time         `json:"order_received_date,omitempty"`
	AssignedAt    *time.Time         `json:"assigned_date,omitempty"`
	CurrentStatus string             `json:"current_status"`
}

func summarize(o models.Order) OrderSummary {
	_, label := o.CurrentStep()
	sum := OrderSummary{
		OrderID:       o.OrderID,
		OrderIDShort:  strings.ToUpper(o.ShortID()),
		PreviewID:     o.PreviewID,
		CustomerName:  o.Customer.Name,
		IsCancelled:   o.IsCancelled,
		OrderType:     o.OrderType,
		Quantity:      o.Quantity,
		OrderDetail:   o.OrderDetail,
		CurrentStatus: label,
	}
	if e, ok := o.TimingTable[models.PhaseOrderReceived]; ok {
		ts := e.Timestamp
		sum.ReceivedAt = &ts
	}
	if e, ok := o.TimingTable[models.PhaseAssignedToManufacturer]; ok {
		ts := e.Timestamp
		sum.AssignedAt = &ts
	}
	return sum
}

// ListUnassigned returns orders with no manufacturer, excluding cancelled
// orders and orders the caller has rejected, newest first.
func (s *OrderService) ListUnassigned(ctx context.Context, user models.User) ([]OrderSummary, error) {
	if user.Role != models.RoleManufacturer {
		return nil, permissionErr("FORBIDDEN", "Only manufacturers can view the unassigned pool")
	}

	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("manufacturer_id IS NULL AND is_cancelled = ?", false).
		Find(&orders).Error; err != nil {
		return nil, upstreamErr("failed to fetch unassigned orders", err)
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		// Rejection membership lives in a JSON column; filtering here keeps
		// the query portable across postgres and sqlite.
		if o.RejectedManufacturers.Contains(user.ID) {
			continue
		}
		summaries = append(summaries, summarize(o))
	}

	sort.Slice(summaries, func(i, j int) bool {
		ti, tj := summaries[i].ReceivedAt, summaries[j].ReceivedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return summaries, nil
}

// ListAdopted returns the caller's assigned, non-cancelled orders sorted by
// assignment date, newest first.
func (s *OrderService) ListAdopted(ctx context.Context, user models.User) ([]OrderSummary, error) {
	if user.Role != models.RoleManufacturer {
		return nil, permissionErr("FORBIDDEN", "Only manufacturers can view adopted orders")
	}

	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Preload("Customer").
		Where("manufacturer_id = ? AND is_cancelled = ?", user.ID, false).
		Find(&orders).Error; err != nil {
		return nil, upstreamErr("failed to fetch adopted orders", err)
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, o := range orders {
		summaries = append(summaries, summarize(o))
	}
	sort.Slice(summaries, func(i, j int) bool {
		ti, tj := summaries[i].AssignedAt, summaries[j].AssignedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return summaries, nil
}

// ListOwn returns the customer's own orders, newest first.
func (s *OrderService) ListOwn(ctx context.Context, user models.User) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Where("customer_id = ?", user.ID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, upstreamErr("failed to fetch orders", err)
	}
	return orders, nil
}

func (s *OrderService) findOrder(ctx context.Context, orderID string, preload bool) (*models.Order, error) {
	var order models.Order
	q := s.db.WithContext(ctx)
	if preload {
		q = q.Preload("Customer").Preload("Manufacturer")
	}
	if err := q.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("ORDER_NOT_FOUND", fmt.Sprintf("Order %s not found", orderID))
		}
		return nil, upstreamErr("failed to fetch order", err)
	}
	return &order, nil
}

// Reject records that the calling manufacturer has declined the order.
// A rejection is permanent per manufacturer-order pair and never removes
// the order from other manufacturers' pools.
func (s *OrderService) Reject(ctx context.Context, user models.User, orderID string) error {
	if user.Role != models.RoleManufacturer {
		return permissionErr("FORBIDDEN", "Only manufacturers can reject orders")
	}

	// Precondition order matters: exists, unassigned, not cancelled, not
	// already rejected by the caller.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("ORDER_NOT_FOUND", fmt.Sprintf("Order %s not found", orderID))
			}
			return upstreamErr("failed to fetch order", err)
		}
		if order.IsAssigned() {
			return conflictErr("ALREADY_ASSIGNED", "Cannot reject an order that already has a manufacturer assigned")
		}
		if order.IsCancelled {
			return conflictErr("ORDER_CANCELLED", "Cannot reject a cancelled order")
		}
		if order.RejectedManufacturers.Contains(user.ID) {
			return conflictErr("ALREADY_REJECTED", "You have already rejected this order")
		}

		rejected := append(order.RejectedManufacturers, user.ID)
		if err := tx.Model(&models.Order{}).
			Where("order_id = ?", orderID).
			Update("rejected_manufacturers", rejected).Error; err != nil {
			return upstreamErr("failed to reject order", err)
		}
		return nil
	})
}

// Assign claims an unassigned order for the calling manufacturer. The claim
// is a single conditional update: of N concurrent calls exactly one row
// update matches, the rest re-read and report the conflict.
func (s *OrderService) Assign(ctx context.Context, user models.User, orderID string) error {
	if user.Role != models.RoleManufacturer {
		return permissionErr("FORBIDDEN", "Only manufacturers can assign orders")
	}

	order, err := s.findOrder(ctx, orderID, false)
	if err != nil {
		return err
	}
	if order.IsCancelled {
		return conflictErr("ORDER_CANCELLED", "Cannot assign a cancelled order")
	}
	if err := s.assignConflict(order, user.ID); err != nil {
		return err
	}
	if order.RejectedManufacturers.Contains(user.ID) {
		return conflictErr("ALREADY_REJECTED", "You have rejected this order and cannot adopt it")
	}

	// The timing table built from the read is safe to write back: before
	// assignment only the immutable order_received entry can exist.
	entry := models.NewTimingEntry(user.ID, models.PhaseAssignedToManufacturer)
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ? AND manufacturer_id IS NULL AND is_cancelled = ?", orderID, false).
		Updates(map[string]interface{}{
			"manufacturer_id": user.ID,
			"timing_table":    order.TimingTable.With(models.PhaseAssignedToManufacturer, entry),
		})
	if res.Error != nil {
		return upstreamErr("failed to assign order", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race; re-read to report the right conflict.
		current, err := s.findOrder(ctx, orderID, false)
		if err != nil {
			return err
		}
		if current.IsCancelled {
			return conflictErr("ORDER_CANCELLED", "Cannot assign a cancelled order")
		}
		if err := s.assignConflict(current, user.ID); err != nil {
			return err
		}
		return conflictErr("ASSIGN_FAILED", "Failed to assign order")
	}
	return nil
}

func (s *OrderService) assignConflict(order *models.Order, userID uint) error {
	if !order.IsAssigned() {
		return nil
	}
	if order.AssignedTo(userID) {
		return conflictErr("ALREADY_ADOPTED", "You have already adopted this order")
	}
	return conflictErr("ASSIGNED_ELSEWHERE", "This order has already been assigned to another manufacturer")
}

// requireAssigned fetches the order and checks the caller is its assigned
// manufacturer.
func (s *OrderService) requireAssigned(ctx context.Context, user models.User, orderID string) (*models.Order, error) {
	if user.Role != models.RoleManufacturer {
		return nil, permissionErr("FORBIDDEN", "Only manufacturers can perform this operation")
	}
	order, err := s.findOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}
	if !order.AssignedTo(user.ID) {
		return nil, permissionErr("NOT_YOUR_ORDER", "You are not assigned to this order")
	}
	return order, nil
}

// StartProduction marks the order as started_manufacturing.
func (s *OrderService) StartProduction(ctx context.Context, user models.User, orderID string) error {
	order, err := s.requireAssigned(ctx, user, orderID)
	if err != nil {
		return err
	}
	if order.TimingTable.Has(models.PhaseStartedManufacturing) {
		return conflictErr("ALREADY_STARTED", "Production already started")
	}
	return s.writePhase(ctx, order, user.ID, models.PhaseStartedManufacturing, nil)
}

// CompleteProduction marks the order as produced.
func (s *OrderService) CompleteProduction(ctx context.Context, user models.User, orderID string) error {
	order, err := s.requireAssigned(ctx, user, orderID)
	if err != nil {
		return err
	}
	if !order.TimingTable.Has(models.PhaseStartedManufacturing) {
		return conflictErr("NOT_STARTED", "Production not started yet")
	}
	if order.TimingTable.Has(models.PhaseProduced) {
		return conflictErr("ALREADY_COMPLETED", "Production already completed")
	}
	return s.writePhase(ctx, order, user.ID, models.PhaseProduced, nil)
}

// FinalizeOrderInput is the payload for Finalize.
type FinalizeOrderInput struct {
	NotesToCustomer string  `json:"notes_to_customer"`
	DeliveryAddress string  `json:"delivery_address" binding:"required"`
	FilamentUsage   float64 `json:"filament_usage"`
	FinalPrice      float64 `json:"final_price"`
}

// Finalize sets the finalization fields and writes the terminal
// ready_to_take phase. After this the order can never be cancelled.
func (s *OrderService) Finalize(ctx context.Context, user models.User, orderID string, in FinalizeOrderInput) error {
	order, err := s.requireAssigned(ctx, user, orderID)
	if err != nil {
		return err
	}
	if !order.TimingTable.Has(models.PhaseProduced) {
		return conflictErr("NOT_PRODUCED", "Production must be completed first")
	}
	if order.TimingTable.Has(models.PhaseReadyToTake) {
		return conflictErr("ALREADY_FINALIZED", "Order already finalized")
	}

	return s.writePhase(ctx, order, user.ID, models.PhaseReadyToTake, map[string]interface{}{
		"manufacturer_notes":    in.NotesToCustomer,
		"delivery_address":      in.DeliveryAddress,
		"actual_filament_usage": in.FilamentUsage,
		"final_price":           in.FinalPrice,
	})
}

// writePhase appends a timing entry (plus any extra column updates) for an
// order already validated by the caller. The updated_at match rejects the
// write if another writer touched the order after the caller's read, so two
// racing calls cannot both restamp the same phase.
func (s *OrderService) writePhase(ctx context.Context, order *models.Order, userID uint, phase string, extra map[string]interface{}) error {
	entry := models.NewTimingEntry(userID, phase)
	updates := map[string]interface{}{
		"timing_table": order.TimingTable.With(phase, entry),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ? AND updated_at = ?", order.OrderID, order.UpdatedAt).
		Updates(updates)
	if res.Error != nil {
		return upstreamErr("failed to update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return conflictErr("CONCURRENT_UPDATE", "Order changed since it was read, retry")
	}
	return nil
}

// UploadProductImage stores a finished-product photo for the order. It may
// happen at any phase once the order is assigned.
func (s *OrderService) UploadProductImage(ctx context.Context, user models.User, orderID string, data []byte, contentType string) (string, error) {
	order, err := s.requireAssigned(ctx, user, orderID)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", validationErr("INVALID_FILE_TYPE", "File must be an image")
	}

	fileID, err := s.blob.Put(ctx, data, contentType, map[string]string{
		"order_id":    order.OrderID,
		"uploaded_by": strconv.FormatUint(uint64(user.ID), 10),
		"kind":        "product_image",
	})
	if err != nil {
		return "", upstreamErr("failed to store product image", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ?", order.OrderID).
		Updates(map[string]interface{}{
			"product_file_id":           fileID,
			"product_image_uploaded_at": now,
		}).Error; err != nil {
		return "", upstreamErr("failed to record product image", err)
	}
	return fileID, nil
}

// CancelResult reports whether Cancel changed anything.
type CancelResult struct {
	AlreadyCancelled bool
}

// Cancel sets the one-way cancellation flag on the customer's own order.
// Cancelling an already-cancelled order is an idempotent no-op; cancelling
// a finalized order is a conflict.
func (s *OrderService) Cancel(ctx context.Context, user models.User, orderID string) (CancelResult, error) {
	order, err := s.findOrder(ctx, orderID, false)
	if err != nil {
		return CancelResult{}, err
	}
	if order.CustomerID != user.ID {
		return CancelResult{}, permissionErr("FORBIDDEN", "You can only cancel your own orders")
	}
	if order.IsCancelled {
		return CancelResult{AlreadyCancelled: true}, nil
	}
	if order.TimingTable.Has(models.PhaseReadyToTake) {
		return CancelResult{}, conflictErr("ORDER_COMPLETED", "A completed order cannot be cancelled")
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Update("is_cancelled", true).Error; err != nil {
		return CancelResult{}, upstreamErr("failed to cancel order", err)
	}
	return CancelResult{}, nil
}

// PartyInfo identifies a customer or manufacturer in a detail view.
type PartyInfo struct {
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Initials string `json:"initials,omitempty"`
}

// StepView is one row of the five-step progress list.
type StepView struct {
	ID        int        `json:"id"`
	Label     string     `json:"label"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Completed bool       `json:"completed"`
}

// Finalization is the detail-view block present once an order is finalized.
type Finalization struct {
	NotesToCustomer string  `json:"notes_to_customer"`
	DeliveryAddress string  `json:"delivery_address"`
	FilamentUsage   float64 `json:"filament_usage"`
	FinalPrice      float64 `json:"final_price"`
}

// OrderDetails is the full order view returned by GetDetails.
type OrderDetails struct {
	Order         models.Order  `json:"order"`
	Customer      PartyInfo     `json:"customer"`
	Manufacturer  *PartyInfo    `json:"manufacturer,omitempty"`
	Steps         []StepView    `json:"steps"`
	CurrentStep   int           `json:"current_step"`
	CurrentStatus string        `json:"current_status"`
	Finalization  *Finalization `json:"finalization,omitempty"`
	OrderHistory  int           `json:"order_history"` // customer's completed orders
}

// GetDetails returns the full order view. Customers may view only their own
// orders. Manufacturers may view any order, but the rejection list is
// removed from their projection so they cannot see who else declined it.
// This is the only place that redaction happens.
func (s *OrderService) GetDetails(ctx context.Context, user models.User, orderID string) (*OrderDetails, error) {
	order, err := s.findOrder(ctx, orderID, true)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case models.RoleCustomer:
		if order.CustomerID != user.ID {
			return nil, permissionErr("FORBIDDEN", "You can only view your own orders")
		}
	case models.RoleManufacturer:
		order.RejectedManufacturers = nil
	default:
		return nil, permissionErr("FORBIDDEN", "Insufficient permissions")
	}

	details := &OrderDetails{
		Order: *order,
		Customer: PartyInfo{
			UserID:   order.Customer.ID,
			Name:     order.Customer.Name,
			Email:    order.Customer.Email,
			Initials: order.Customer.Initials(),
		},
	}
	if order.Manufacturer != nil {
		details.Manufacturer = &PartyInfo{
			UserID: order.Manufacturer.ID,
			Name:   order.Manufacturer.Name,
			Email:  order.Manufacturer.Email,
		}
	}

	for i, p := range models.Phases {
		step := StepView{ID: i + 1, Label: p.Label}
		if entry, ok := order.TimingTable[p.Key]; ok {
			ts := entry.Timestamp
			step.Timestamp = &ts
			step.Completed = true
		}
		details.Steps = append(details.Steps, step)
	}
	details.CurrentStep, details.CurrentStatus = order.CurrentStep()

	if order.TimingTable.Has(models.PhaseReadyToTake) {
		fin := Finalization{
			NotesToCustomer: order.ManufacturerNotes,
			DeliveryAddress: order.DeliveryAddress,
		}
		if order.ActualFilamentUsage != nil {
			fin.FilamentUsage = *order.ActualFilamentUsage
		}
		if order.FinalPrice != nil {
			fin.FinalPrice = *order.FinalPrice
		}
		details.Finalization = &fin
	}

	history, err := s.countCompletedOrders(ctx, order.CustomerID)
	if err != nil {
		// History is decoration on the view; a counting failure should not
		// hide the order itself.
		log.Printf("warning: failed to count order history for user %d: %v", order.CustomerID, err)
	}
	details.OrderHistory = history

	return details, nil
}

func (s *OrderService) countCompletedOrders(ctx context.Context, customerID uint) (int, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Select("timing_table").
		Where("customer_id = ?", customerID).
		Find(&orders).Error; err != nil {
		return 0, err
	}
	count := 0
	for _, o := range orders {
		if o.TimingTable.Has(models.PhaseReadyToTake) {
			count++
		}
	}
	return count, nil
}

// DownloadModel returns the model file bytes for the assigned manufacturer.
func (s *OrderService) DownloadModel(ctx context.Context, user models.User, orderID string) (*BlobObject, error) {
	order, err := s.requireAssigned(ctx, user, orderID)
	if err != nil {
		return nil, err
	}
	obj, err := s.blob.Get(ctx, order.FileID)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, notFoundErr("FILE_NOT_FOUND", "Model file not found")
		}
		return nil, upstreamErr("failed to fetch model file", err)
	}
	return obj, nil
}

// DownloadProductImage returns the finished-product photo for the assigned
// manufacturer or the order's owner.
func (s *OrderService) DownloadProductImage(ctx context.Context, user models.User, orderID string) (*BlobObject, error) {
	order, err := s.findOrder(ctx, orderID, false)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != user.ID && !order.AssignedTo(user.ID) {
		return nil, permissionErr("FORBIDDEN", "Permission denied")
	}
	if order.ProductFileID == "" {
		return nil, notFoundErr("IMAGE_NOT_FOUND", "Product image not found")
	}
	obj, err := s.blob.Get(ctx, order.ProductFileID)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, notFoundErr("IMAGE_NOT_FOUND", "Product image not found")
		}
		return nil, upstreamErr("failed to fetch product image", err)
	}
	return obj, nil
}
