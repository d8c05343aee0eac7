package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/hertz-contrib/websocket"
	"github.com/panjf2000/ants/v2"
	"github.com/segmentio/kafka-go"

	"profitshare-hertz/conf"
)

const shardNum = 32

var upgrader = websocket.HertzUpgrader{
	CheckOrigin: func(ctx *app.RequestContext) bool {
		return true // 允许所有跨域 WebSocket 连接
	},
}

// UserShard 按用户分片的订阅表
type UserShard struct {
	Mu     sync.RWMutex
	Subs   map[string]map[*websocket.Conn]struct{}
	MsgBuf map[string]chan []byte // 每个用户的消息缓冲区
}

var userShards [shardNum]*UserShard

var broadcastPool *ants.Pool

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

var msgBytePool = sync.Pool{
	New: func() any {
		return make([]byte, 4096)
	},
}

func init() {
	for i := 0; i < shardNum; i++ {
		userShards[i] = &UserShard{
			Subs:   make(map[string]map[*websocket.Conn]struct{}),
			MsgBuf: make(map[string]chan []byte),
		}
	}
	pool, err := ants.NewPool(1024)
	if err != nil {
		panic(err)
	}
	broadcastPool = pool
}

// 启动用户消息分发 goroutine
func ensureUserDispatcher(shard *UserShard, userID string) {
	if _, ok := shard.MsgBuf[userID]; ok {
		return
	}
	msgBuf := make(chan []byte, 4096)
	shard.MsgBuf[userID] = msgBuf
	go func() {
		for msg := range msgBuf {
			shard.Mu.RLock()
			conns := shard.Subs[userID]
			for conn := range conns {
				err := broadcastPool.Submit(func() {
					success := false
					for i := 0; i < 3; i++ {
						if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
							log.Printf("push error: %v, retry %d", err, i+1)
						} else {
							success = true
							break
						}
					}
					if !success {
						log.Printf("conn write failed after retries, drop conn: %v", conn.RemoteAddr())
						shard := GetUserShard(userID)
						shard.Mu.Lock()
						delete(shard.Subs[userID], conn)
						if len(shard.Subs[userID]) == 0 {
							delete(shard.Subs, userID)
						}
						shard.Mu.Unlock()
						cleanConnFromAllUsers(conn)
						_ = conn.Close()
					}
				})
				if err != nil {
					log.Printf("broadcastPool.Submit error: %v, conn: %v", err, conn.RemoteAddr())
				}
			}
			shard.Mu.RUnlock()
		}
		shard.Mu.Lock()
		delete(shard.MsgBuf, userID)
		shard.Mu.Unlock()
	}()
}

func GetUserShard(userID string) *UserShard {
	h := fnv32(userID)
	return userShards[h%shardNum]
}

func fnv32(key string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return h
}

// 解析 action/user_id

type Message struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

func parseAction(msg []byte) (string, string) {
	var m Message
	if err := json.Unmarshal(msg, &m); err != nil {
		return "", ""
	}
	return m.Action, m.UserID
}

// 清理连接的全部用户订阅
func cleanConnFromAllUsers(c *websocket.Conn) {
	for i := 0; i < shardNum; i++ {
		shard := userShards[i]
		shard.Mu.Lock()
		for uid, conns := range shard.Subs {
			if conns != nil {
				if _, ok := conns[c]; ok {
					delete(conns, c)
					if len(conns) == 0 {
						delete(shard.Subs, uid)
					}
				}
			}
		}
		shard.Mu.Unlock()
	}
}

// PushUserEvent 推送消息到订阅了该用户的全部连接
func PushUserEvent(userID string, msg []byte) {
	shard := GetUserShard(userID)
	shard.Mu.Lock()
	ensureUserDispatcher(shard, userID)
	buf, ok := shard.MsgBuf[userID]
	shard.Mu.Unlock()
	if ok && buf != nil {
		select {
		case buf <- msg:
			// 写入成功
		default:
			log.Printf("user %s buffer full, drop message", userID)
			go saveDroppedMessage(userID, msg)
		}
	}
}

func safePush(userID string, buf *bytes.Buffer) {
	msg := msgBytePool.Get().([]byte)
	if cap(msg) < buf.Len() {
		msg = make([]byte, buf.Len())
	}
	msg = msg[:buf.Len()]
	copy(msg, buf.Bytes())
	PushUserEvent(userID, msg)
	msgBytePool.Put(msg)
}

// 丢弃的消息异步写入 Kafka，离线补偿用
func saveDroppedMessage(userID string, msg []byte) {
	go func() {
		topic := "dropped_user_events"
		w := getDroppedKafkaWriter(topic)
		if w == nil {
			log.Printf("failed to get dropped kafka writer for topic %s", topic)
			return
		}
		_ = w.WriteMessages(context.Background(), kafka.Message{Key: []byte(userID), Value: msg})
	}()
}

var droppedKafkaWriters sync.Map // map[topic]*kafka.Writer

func getDroppedKafkaWriter(topic string) *kafka.Writer {
	if w, ok := droppedKafkaWriters.Load(topic); ok {
		return w.(*kafka.Writer)
	}

	brokers := conf.GetConf().Kafka.Brokers
	w := &kafka.Writer{
		Addr:  kafka.TCP(brokers...),
		Topic: topic,
		Async: true,
	}
	droppedKafkaWriters.Store(topic, w)
	return w
}

// PushOrderStatus 订单状态变更推送
func PushOrderStatus(userID string, orderID string, status string, ts int64) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.WriteString(`{"user_id":"`)
	buf.WriteString(userID)
	buf.WriteString(`","type":"order_status","data":{`)
	buf.WriteString(`"order_id":"`)
	buf.WriteString(orderID)
	buf.WriteString(`","status":"`)
	buf.WriteString(status)
	buf.WriteString(`","ts":`)
	buf.WriteString(fmt.Sprintf("%d", ts))
	buf.WriteString("}}")
	safePush(userID, buf)
	bufferPool.Put(buf)
}

// PushCommissionCredit 佣金入账推送
func PushCommissionCredit(userID string, recordID string, amount string, generation int, ts int64) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.WriteString(`{"user_id":"`)
	buf.WriteString(userID)
	buf.WriteString(`","type":"commission_credit","data":{`)
	buf.WriteString(`"record_id":"`)
	buf.WriteString(recordID)
	buf.WriteString(`","amount":"`)
	buf.WriteString(amount)
	buf.WriteString(`","generation":`)
	buf.WriteString(fmt.Sprintf("%d", generation))
	buf.WriteString(`,"ts":`)
	buf.WriteString(fmt.Sprintf("%d", ts))
	buf.WriteString("}}")
	safePush(userID, buf)
	bufferPool.Put(buf)
}

// NewWebSocketServer WebSocket 服务端
func NewWebSocketServer(addr string) *server.Hertz {
	h := server.Default(server.WithHostPorts(addr))
	h.NoHijackConnPool = true

	h.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		err := upgrader.Upgrade(c, func(conn *websocket.Conn) {
			log.Printf("[WS] connection upgraded: %v", conn.RemoteAddr())
			defer func() {
				cleanConnFromAllUsers(conn)
				if err := conn.Close(); err != nil {
					log.Printf("close error: %v", err)
				}
				log.Printf("[WS] connection closed: %v", conn.RemoteAddr())
			}()

			for {
				mt, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("read error: %v", err)
					break
				}

				action, userID := parseAction(msg)
				if action == "subscribe" && userID != "" {
					shard := GetUserShard(userID)
					shard.Mu.Lock()
					if shard.Subs[userID] == nil {
						shard.Subs[userID] = make(map[*websocket.Conn]struct{})
					}
					shard.Subs[userID][conn] = struct{}{}
					ensureUserDispatcher(shard, userID)
					shard.Mu.Unlock()
					ack := []byte(`{"type":"subscription_ack","user_id":"` + userID + `"}`)
					if err := conn.WriteMessage(mt, ack); err != nil {
						log.Printf("ack error: %v", err)
					}
					continue
				}
				if action == "unsubscribe" && userID != "" {
					shard := GetUserShard(userID)
					shard.Mu.Lock()
					if conns, ok := shard.Subs[userID]; ok {
						delete(conns, conn)
						if len(conns) == 0 {
							delete(shard.Subs, userID)
						}
					}
					shard.Mu.Unlock()
					ack := []byte(`{"type":"unsubscription_ack","user_id":"` + userID + `"}`)
					if err := conn.WriteMessage(mt, ack); err != nil {
						log.Printf("ack error: %v", err)
					}
					continue
				}
			}
		})
		if err != nil {
			log.Printf("upgrade error: %v", err)
		}
	})

	return h
}
