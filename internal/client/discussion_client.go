package client

import (
	"Haven/internal/api/dto"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

const defaultTimeout = 10 * time.Second

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discussion api: %d %s", e.Status, e.Message)
}

// IsStatus 判断错误是否为指定状态码的 APIError
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// DiscussionClient 讨论服务的 HTTP 客户端
type DiscussionClient struct {
	http *resty.Client

	mu    sync.RWMutex
	token string
}

// NewDiscussionClient baseURL 需包含服务端的 base path
func NewDiscussionClient(baseURL string, timeout time.Duration) *DiscussionClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &DiscussionClient{http: httpClient}
}

func (s *DiscussionClient) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *DiscussionClient) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *DiscussionClient) request(ctx context.Context) *resty.Request {
	req := s.http.R().SetContext(ctx).SetError(&dto.ErrorResponse{})
	if token := s.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// Login 登录成功后保存 token, 后续请求自动携带
func (s *DiscussionClient) Login(ctx context.Context, email, password string) (*dto.TokenDTO, error) {
	out := &dto.TokenDTO{}
	resp, err := s.request(ctx).
		SetBody(&dto.CredentialDTO{Email: email, Password: password}).
		SetResult(out).
		Post("/auth/login")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	s.SetToken(out.Token)
	return out, nil
}

func (s *DiscussionClient) Register(ctx context.Context, req *dto.RegisterDTO) (*dto.UserDTO, error) {
	out := &dto.UserDTO{}
	resp, err := s.request(ctx).SetBody(req).SetResult(out).Post("/auth/register")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DiscussionClient) List(ctx context.Context, sort string) ([]*dto.PostDTO, error) {
	out := make([]*dto.PostDTO, 0)
	req := s.request(ctx).SetResult(&out)
	if sort != "" {
		req.SetQueryParam("sort", sort)
	}
	resp, err := req.Get("/discussions")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DiscussionClient) Create(ctx context.Context, post *dto.CreatePostDTO) (*dto.PostDTO, error) {
	out := &dto.PostDTO{}
	resp, err := s.request(ctx).SetBody(post).SetResult(out).Post("/discussions")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DiscussionClient) ToggleLike(ctx context.Context, postID uint64) (*dto.PostDTO, error) {
	return s.update(ctx, postID, &dto.UpdatePostDTO{Action: dto.ActionLike})
}

func (s *DiscussionClient) AddComment(ctx context.Context, postID uint64, content string) (*dto.PostDTO, error) {
	return s.update(ctx, postID, &dto.UpdatePostDTO{Action: dto.ActionComment, Content: &content})
}

func (s *DiscussionClient) DeleteComment(ctx context.Context, postID, commentID uint64) (*dto.PostDTO, error) {
	return s.update(ctx, postID, &dto.UpdatePostDTO{Action: dto.ActionDeleteComment, CommentID: &commentID})
}

func (s *DiscussionClient) DeletePost(ctx context.Context, postID uint64) error {
	resp, err := s.request(ctx).
		SetQueryParam("id", strconv.FormatUint(postID, 10)).
		Delete("/discussions")
	return check(resp, err)
}

func (s *DiscussionClient) update(ctx context.Context, postID uint64, body *dto.UpdatePostDTO) (*dto.PostDTO, error) {
	out := &dto.PostDTO{}
	resp, err := s.request(ctx).
		SetQueryParam("id", strconv.FormatUint(postID, 10)).
		SetBody(body).
		SetResult(out).
		Put("/discussions")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	message := http.StatusText(resp.StatusCode())
	if errResp, ok := resp.Error().(*dto.ErrorResponse); ok && errResp.Message != "" {
		message = errResp.Message
	}
	return &APIError{Status: resp.StatusCode(), Message: message}
}
