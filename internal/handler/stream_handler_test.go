package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/service"
)

type decodedStreamMessage struct {
	Type string               `json:"type"`
	Data service.ListSnapshot `json:"data"`
}

type StreamHubSuite struct {
	suite.Suite
	hub    *StreamHub
	server *httptest.Server
	wsURL  string
	conns  []*websocket.Conn
}

func (s *StreamHubSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.hub = NewStreamHub([]string{"http://ui.test"}, time.Second, zap.NewNop())
	r := gin.New()
	r.GET("/stream", s.hub.Serve)
	s.server = httptest.NewServer(r)
	s.wsURL = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/stream"
	s.conns = nil
}

func (s *StreamHubSuite) TearDownTest() {
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.server.Close()
}

func (s *StreamHubSuite) dial(origin string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL, header)
	if conn != nil {
		s.conns = append(s.conns, conn)
	}
	return conn, resp, err
}

func (s *StreamHubSuite) read(conn *websocket.Conn) decodedStreamMessage {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, payload, err := conn.ReadMessage()
	s.Require().NoError(err)
	var msg decodedStreamMessage
	s.Require().NoError(json.Unmarshal(payload, &msg))
	return msg
}

func (s *StreamHubSuite) TestNewClientReceivesLatestSnapshot() {
	s.hub.PublishList(service.ListSnapshot{State: service.ListLoading, Generation: 1})
	s.hub.PublishList(service.ListSnapshot{
		State:      service.ListPopulated,
		Items:      []models.ScheduleRow{{ID: 9, Period: 2}},
		Pagination: models.Pagination{CurrentPage: 1, TotalPages: 1, Total: 1, PerPage: 5},
		Generation: 1,
	})

	conn, _, err := s.dial("")
	s.Require().NoError(err)

	msg := s.read(conn)
	s.Equal("schedules", msg.Type)
	s.Equal(service.ListPopulated, msg.Data.State)
	s.Require().Len(msg.Data.Items, 1)
	s.Equal(int64(9), msg.Data.Items[0].ID)
}

func (s *StreamHubSuite) TestBroadcastReachesEveryClient() {
	first, _, err := s.dial("http://ui.test")
	s.Require().NoError(err)
	second, _, err := s.dial("")
	s.Require().NoError(err)
	s.Eventually(func() bool { return s.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	s.hub.PublishList(service.ListSnapshot{State: service.ListError, Error: "offline", ErrorKind: "connection", Generation: 4})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := s.read(conn)
		s.Equal(service.ListError, msg.Data.State)
		s.Equal("connection", msg.Data.ErrorKind)
		s.Equal(uint64(4), msg.Data.Generation)
	}
}

func (s *StreamHubSuite) TestRejectsForeignOrigin() {
	_, resp, err := s.dial("http://evil.test")
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusForbidden, resp.StatusCode)
	s.Zero(s.hub.ClientCount())
}

func (s *StreamHubSuite) TestDisconnectUnregisters() {
	conn, _, err := s.dial("")
	s.Require().NoError(err)
	s.Eventually(func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	s.Require().NoError(conn.Close())
	s.Eventually(func() bool { return s.hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamHubSuite(t *testing.T) {
	suite.Run(t, new(StreamHubSuite))
}
