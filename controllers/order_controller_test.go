package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/config"
	"github.com/kiwio/print-broker-api/middleware"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.Order{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{},
		})
		c.Next()
	}
}

func seedOrderTestData(t *testing.T, db *gorm.DB) (models.User, models.User, *services.MockBlobStore) {
	customer := models.User{
		Auth0ID: "auth0|customer123",
		Name:    "Customer User",
		Email:   "customer@example.com",
		Role:    "customer",
	}
	db.Create(&customer)

	manufacturer := models.User{
		Auth0ID: "auth0|maker123",
		Name:    "Maker User",
		Email:   "maker@example.com",
		Role:    "manufacturer",
	}
	db.Create(&manufacturer)

	blob := services.NewMockBlobStore()
	blob.Seed("model-1", []byte("stl"), "model/stl", map[string]string{"volume_cm3": "120"})
	services.SetOrderService(services.NewOrderService(db, blob))

	return customer, manufacturer, blob
}

func TestCreateOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	config.SetDB(db)
	customer, manufacturer, _ := seedOrderTestData(t, db)

	validDetail := map[string]interface{}{
		"material":       "PLA",
		"brand":          "Creality",
		"color":          "black",
		"layer_height":   0.2,
		"infill":         20,
		"bottom_texture": "smooth",
		"nozzle_size":    0.4,
	}

	tests := []struct {
		name           string
		auth0ID        string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name:    "Successfully create order as customer",
			auth0ID: customer.Auth0ID,
			requestBody: map[string]interface{}{
				"file_id":      "model-1",
				"order_type":   "FDM",
				"order_detail": validDetail,
				"quantity":     1,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.NotEmpty(t, data["order_id"])
				assert.Equal(t, float64(customer.ID), data["customer_id"])

				estimations := data["estimations"].(map[string]interface{})
				assert.Equal(t, 59.52, estimations["estimated_weight"])
				assert.Equal(t, 7.98, estimations["estimated_cost"])
			},
		},
		{
			name:    "Fail to create order as manufacturer",
			auth0ID: manufacturer.Auth0ID,
			requestBody: map[string]interface{}{
				"file_id":      "model-1",
				"order_type":   "FDM",
				"order_detail": validDetail,
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "FORBIDDEN",
		},
		{
			name:    "Fail with missing file_id",
			auth0ID: customer.Auth0ID,
			requestBody: map[string]interface{}{
				"order_type":   "FDM",
				"order_detail": validDetail,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "Fail with unknown file",
			auth0ID: customer.Auth0ID,
			requestBody: map[string]interface{}{
				"file_id":      "no-such-file",
				"order_type":   "FDM",
				"order_detail": validDetail,
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "FILE_NOT_FOUND",
		},
		{
			name:    "Fail with invalid order type",
			auth0ID: customer.Auth0ID,
			requestBody: map[string]interface{}{
				"file_id":      "model-1",
				"order_type":   "DLP",
				"order_detail": validDetail,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name:    "Fail with user not found",
			auth0ID: "auth0|nonexistent",
			requestBody: map[string]interface{}{
				"file_id":      "model-1",
				"order_type":   "FDM",
				"order_detail": validDetail,
			},
			expectedStatus: http.StatusNotFound,
			expectedError:  "USER_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/order/new", mockAuthMiddleware(tt.auth0ID), CreateOrder)

			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest(http.MethodPost, "/order/new", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedError, errorData["code"])
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	db := setupOrderTestDB(t)
	config.SetDB(db)
	customer, _, _ := seedOrderTestData(t, db)

	order := models.Order{
		OrderID:    "cancel-me",
		CustomerID: customer.ID,
		FileID:     "model-1",
		OrderType:  "FDM",
		Quantity:   1,
		TimingTable: models.TimingTable{
			models.PhaseOrderReceived: models.NewTimingEntry(customer.ID, models.PhaseOrderReceived),
		},
	}
	db.Create(&order)

	router := setupTestRouter()
	router.POST("/order/:order_id/cancel", mockAuthMiddleware(customer.Auth0ID), CancelOrder)

	// First cancel flips the flag.
	req, _ := http.NewRequest(http.MethodPost, "/order/cancel-me/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.False(t, data["already_cancelled"].(bool))

	// Second cancel is reported as already cancelled.
	req, _ = http.NewRequest(http.MethodPost, "/order/cancel-me/cancel", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data = response["data"].(map[string]interface{})
	assert.True(t, data["already_cancelled"].(bool))
}

func TestGetOrderNotFound(t *testing.T) {
	db := setupOrderTestDB(t)
	config.SetDB(db)
	customer, _, _ := seedOrderTestData(t, db)

	router := setupTestRouter()
	router.GET("/order/:order_id", mockAuthMiddleware(customer.Auth0ID), GetOrder)

	req, _ := http.NewRequest(http.MethodGet, "/order/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "ORDER_NOT_FOUND", errorData["code"])
}
