package acceptance

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/kiwio/print-broker-api/config"
	"github.com/kiwio/print-broker-api/controllers"
	"github.com/kiwio/print-broker-api/models"
	"github.com/kiwio/print-broker-api/services"
	"github.com/kiwio/print-broker-api/tests/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ChatAcceptanceTestSuite exercises the chat endpoints and the SSE stream
// against a real test server, as a client would use them.
type ChatAcceptanceTestSuite struct {
	suite.Suite
	server *httptest.Server
	db     *gorm.DB
	user   models.User
}

func (suite *ChatAcceptanceTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("GO_ENV", "test")
}

func (suite *ChatAcceptanceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)
	sqlDB, err := db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(db.AutoMigrate(&models.User{}, &models.Channel{}, &models.Message{}))
	suite.db = db
	config.SetDB(db)

	mr := miniredis.RunT(suite.T())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	services.SetChatService(services.NewChatService(db, rdb))

	suite.user = models.User{Auth0ID: "auth0|chatter", Name: "Chatty User", Email: "chatty@test.com", Role: "customer"}
	suite.Require().NoError(db.Create(&suite.user).Error)

	auth := testutil.MockAuthMiddleware(suite.user.Auth0ID)
	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/channel/:channel/messages", auth, controllers.SendMessage)
		v1.GET("/channel/:channel/messages", auth, controllers.GetMessages)
		v1.GET("/channel/:channel/stats", auth, controllers.GetChannelStats)
		v1.GET("/stream/:channel", auth, controllers.StreamChannel)
	}
	suite.server = httptest.NewServer(router)
}

func (suite *ChatAcceptanceTestSuite) TearDownTest() {
	suite.server.Close()
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (suite *ChatAcceptanceTestSuite) sendMessage(channel, content string) {
	body, _ := json.Marshal(map[string]interface{}{"content": content})
	resp, err := http.Post(
		suite.server.URL+"/api/v1/channel/"+channel+"/messages",
		"application/json",
		bytes.NewBuffer(body),
	)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)
}

// TestStreamDeliversLiveMessages subscribes to a channel's stream, sends a
// message through the API, and expects to see it arrive as an SSE event.
func (suite *ChatAcceptanceTestSuite) TestStreamDeliversLiveMessages() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(suite.server.URL + "/api/v1/stream/order-99")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	// The first event announces the connection.
	line, err := reader.ReadString('\n')
	suite.Require().NoError(err)
	suite.Equal("event: connected", strings.TrimSpace(line))

	// Drain until the blank line ending the connected event.
	for {
		line, err = reader.ReadString('\n')
		suite.Require().NoError(err)
		if strings.TrimSpace(line) == "" {
			break
		}
	}

	suite.sendMessage("order-99", "live acceptance check")

	// The message arrives as an SSE event on the open stream.
	var sawMessage bool
	deadline := time.After(3 * time.Second)
	lines := make(chan string)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- l
		}
	}()

	for !sawMessage {
		select {
		case l, ok := <-lines:
			if !ok {
				suite.Fail("stream closed before the message arrived")
				return
			}
			if strings.Contains(l, "live acceptance check") {
				sawMessage = true
			}
		case <-deadline:
			suite.Fail("timed out waiting for the live message")
			return
		}
	}
}

// TestSendThenRead verifies the basic message round trip over HTTP.
func (suite *ChatAcceptanceTestSuite) TestSendThenRead() {
	suite.sendMessage("order-7", "hello")
	suite.sendMessage("order-7", "world")

	resp, err := http.Get(suite.server.URL + "/api/v1/channel/order-7/messages")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	var response struct {
		Success bool `json:"success"`
		Data    []struct {
			Content string `json:"content"`
			Sender  string `json:"sender"`
		} `json:"data"`
	}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))
	suite.True(response.Success)
	suite.Require().Len(response.Data, 2)
	suite.Equal("world", response.Data[0].Content)
	suite.Equal(suite.user.Name, response.Data[0].Sender)

	stats, err := http.Get(suite.server.URL + "/api/v1/channel/order-7/stats")
	suite.Require().NoError(err)
	defer stats.Body.Close()
	suite.Equal(http.StatusOK, stats.StatusCode)
}

func TestChatAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(ChatAcceptanceTestSuite))
}
