package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatClient 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatClient 用于测试的 BaseChatModel 模拟实现，可并发调用
type MockChatClient struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int
	repeat    bool

	received [][]*schema.Message
	options  []*model.Options
}

var _ model.BaseChatModel = (*MockChatClient)(nil)

// NewMockChatClient 每次都返回相同响应
func NewMockChatClient(content string, err error) *MockChatClient {
	return &MockChatClient{responses: []MockResponse{{Content: content, Error: err}}, repeat: true}
}

// NewMockChatClientSequential 按顺序返回响应，用完后报错
func NewMockChatClientSequential(responses []MockResponse) *MockChatClient {
	return &MockChatClient{responses: responses}
}

func (m *MockChatClient) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]*schema.Message, len(input))
	copy(cp, input)
	m.received = append(m.received, cp)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))

	if len(m.responses) == 0 {
		return nil, errors.New("mock client has no responses configured")
	}
	if m.index >= len(m.responses) {
		if !m.repeat {
			return nil, errors.New("mock client has run out of sequential responses")
		}
		m.index = len(m.responses) - 1
	}
	resp := m.responses[m.index]
	m.index++
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls 已收到的调用次数
func (m *MockChatClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// LastMessages 最近一次调用收到的消息
func (m *MockChatClient) LastMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.received) == 0 {
		return nil
	}
	return m.received[len(m.received)-1]
}

// LastOptions 最近一次调用的通用选项
func (m *MockChatClient) LastOptions() *model.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return nil
	}
	return m.options[len(m.options)-1]
}
