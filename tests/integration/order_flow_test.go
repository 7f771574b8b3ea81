package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/config"
	"github.com/kiwio/print-broker-api/controllers"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
	"github.com/kiwio/print-broker-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OrderFlowTestSuite drives an order through its full lifecycle over HTTP:
// upload, create, assign, production, finalize.
type OrderFlowTestSuite struct {
	suite.Suite
	router       *gin.Engine
	db           *gorm.DB
	blob         *services.MockBlobStore
	customer     models.User
	manufacturer models.User
}

func (suite *OrderFlowTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("GO_ENV", "test")
}

func (suite *OrderFlowTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)

	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(&models.User{}, &models.Order{}))
	suite.db = db
	config.SetDB(db)

	suite.blob = services.NewMockBlobStore()
	suite.blob.SetAsMockForTesting()
	services.SetOrderService(services.NewOrderService(db, suite.blob))

	suite.customer = models.User{Auth0ID: "auth0|customer", Name: "Casey Customer", Email: "casey@test.com", Role: "customer"}
	suite.manufacturer = models.User{Auth0ID: "auth0|maker", Name: "Morgan Maker", Email: "morgan@test.com", Role: "manufacturer"}
	suite.Require().NoError(db.Create(&suite.customer).Error)
	suite.Require().NoError(db.Create(&suite.manufacturer).Error)

	customerAuth := testutil.MockAuthMiddleware(suite.customer.Auth0ID)
	makerAuth := testutil.MockAuthMiddleware(suite.manufacturer.Auth0ID)

	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	{
		v1.POST("/order/new", customerAuth, controllers.CreateOrder)
		v1.GET("/order/:order_id", customerAuth, controllers.GetOrder)
		v1.POST("/order/:order_id/cancel", customerAuth, controllers.CancelOrder)

		v1.GET("/manufacturer/unassigned_orders", makerAuth, controllers.ListUnassignedOrders)
		v1.POST("/manufacturer/assign_order/:order_id", makerAuth, controllers.AssignOrder)
		v1.GET("/manufacturer/order/:order_id", makerAuth, controllers.GetManufacturerOrder)
		v1.POST("/manufacturer/order/:order_id/start_production", makerAuth, controllers.StartProduction)
		v1.POST("/manufacturer/order/:order_id/complete_production", makerAuth, controllers.CompleteProduction)
		v1.POST("/manufacturer/order/:order_id/finalize", makerAuth, controllers.FinalizeOrder)
	}
}

func (suite *OrderFlowTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (suite *OrderFlowTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *OrderFlowTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *OrderFlowTestSuite) placeOrder() string {
	suite.blob.Seed("model-1", []byte("stl"), "model/stl", map[string]string{"volume_cm3": "120"})

	w := suite.request(http.MethodPost, "/api/v1/order/new", map[string]interface{}{
		"file_id":    "model-1",
		"order_type": "FDM",
		"order_detail": map[string]interface{}{
			"material":       "PLA",
			"brand":          "Creality",
			"color":          "black",
			"layer_height":   0.2,
			"infill":         20,
			"bottom_texture": "smooth",
			"nozzle_size":    0.4,
		},
		"quantity": 1,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	data := suite.decode(w)["data"].(map[string]interface{})
	return data["order_id"].(string)
}

// TestFullOrderLifecycle walks an order from placement to ready_to_take.
func (suite *OrderFlowTestSuite) TestFullOrderLifecycle() {
	orderID := suite.placeOrder()

	// The order shows up in the manufacturer's pool.
	w := suite.request(http.MethodGet, "/api/v1/manufacturer/unassigned_orders", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	pool := suite.decode(w)["data"].([]interface{})
	suite.Require().Len(pool, 1)
	summary := pool[0].(map[string]interface{})
	suite.Equal(orderID, summary["order_id"])
	suite.Equal(suite.customer.Name, summary["customer_name"])

	// Adopt it and move it through production.
	for i, step := range []string{
		"/api/v1/manufacturer/assign_order/" + orderID,
		"/api/v1/manufacturer/order/" + orderID + "/start_production",
		"/api/v1/manufacturer/order/" + orderID + "/complete_production",
	} {
		w = suite.request(http.MethodPost, step, nil)
		suite.Require().Equal(http.StatusOK, w.Code, fmt.Sprintf("step %d: %s", i, w.Body.String()))
	}

	w = suite.request(http.MethodPost, "/api/v1/manufacturer/order/"+orderID+"/finalize", map[string]interface{}{
		"notes_to_customer": "Printed in one piece",
		"delivery_address":  "12 Print St",
		"filament_usage":    61.3,
		"final_price":       9.50,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// The customer sees the terminal state and the finalization block.
	w = suite.request(http.MethodGet, "/api/v1/order/"+orderID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	data := suite.decode(w)["data"].(map[string]interface{})
	suite.Equal(float64(5), data["current_step"])

	finalization := data["finalization"].(map[string]interface{})
	suite.Equal("12 Print St", finalization["delivery_address"])
	suite.Equal(9.50, finalization["final_price"])

	steps := data["steps"].([]interface{})
	suite.Require().Len(steps, 5)
	for _, raw := range steps {
		step := raw.(map[string]interface{})
		suite.True(step["completed"].(bool))
	}

	// A finalized order refuses cancellation.
	w = suite.request(http.MethodPost, "/api/v1/order/"+orderID+"/cancel", nil)
	suite.Equal(http.StatusConflict, w.Code)
}

// TestCancelledOrderLeavesPool verifies a cancelled order cannot be adopted.
func (suite *OrderFlowTestSuite) TestCancelledOrderLeavesPool() {
	orderID := suite.placeOrder()

	w := suite.request(http.MethodPost, "/api/v1/order/"+orderID+"/cancel", nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/v1/manufacturer/unassigned_orders", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	pool := suite.decode(w)["data"].([]interface{})
	suite.Empty(pool)

	w = suite.request(http.MethodPost, "/api/v1/manufacturer/assign_order/"+orderID, nil)
	suite.Equal(http.StatusConflict, w.Code)
}

// TestManufacturerViewRedactsRejections verifies the manufacturer detail
// view never exposes who rejected the order.
func (suite *OrderFlowTestSuite) TestManufacturerViewRedactsRejections() {
	orderID := suite.placeOrder()

	rival := models.User{Auth0ID: "auth0|rival", Name: "Riley Rival", Email: "riley@test.com", Role: "manufacturer"}
	suite.Require().NoError(suite.db.Create(&rival).Error)
	suite.Require().NoError(services.GetOrderService().Reject(context.Background(), rival, orderID))

	w := suite.request(http.MethodGet, "/api/v1/manufacturer/order/"+orderID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	data := suite.decode(w)["data"].(map[string]interface{})
	order := data["order"].(map[string]interface{})
	rejected, present := order["rejected_manufacturers"]
	if present && rejected != nil {
		suite.Empty(rejected)
	}
}

func TestOrderFlowTestSuite(t *testing.T) {
	suite.Run(t, new(OrderFlowTestSuite))
}
