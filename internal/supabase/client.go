// Package supabase реализует удалённый сервис данных поверх HTTP API Supabase:
// PostgREST для таблиц, GoTrue для аутентификации и Storage для файлов.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"github.com/mmeshcher/cafebloom/internal/backend"
)

// Config содержит параметры подключения к проекту Supabase.
type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client инкапсулирует HTTP-взаимодействие с Supabase.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ backend.Backend = (*Client)(nil)

// New создаёт клиент Supabase.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = cfg.Timeout
		if httpClient.Timeout == 0 {
			httpClient.Timeout = 10 * time.Second
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// Close освобождает простаивающие соединения.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// APIError описывает ошибку, возвращённую Supabase.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.StatusCode, e.Message)
}

// parseError извлекает код и сообщение из тела ответа любого из API Supabase.
func parseError(body []byte, statusCode int) error {
	res := gjson.GetManyBytes(body, "code", "error_code", "error", "msg", "message", "error_description")

	apiErr := &APIError{StatusCode: statusCode}
	for _, v := range res[:3] {
		if v.Type == gjson.String && v.Str != "" {
			apiErr.Code = v.Str
			break
		}
	}
	for _, v := range res[3:] {
		if v.Str != "" {
			apiErr.Message = v.Str
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	if statusCode >= 500 || statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, apiErr)
	}
	return apiErr
}

type response struct {
	body       []byte
	statusCode int
	header     http.Header
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", c.apiKey)
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func (c *Client) do(req *http.Request) (*response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(body, resp.StatusCode)
	}

	return &response{body: body, statusCode: resp.StatusCode, header: resp.Header}, nil
}

func (c *Client) sendJSON(ctx context.Context, method, reqURL, token string, payload any, headers map[string]string) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req)
}

// From начинает построение запроса к таблице.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table}
}

// QueryBuilder строит запросы PostgREST.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters url.Values
	orders  []string
	limit   int
	single  bool
	count   bool
}

// Select задаёт список колонок.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) filter(column, op string, value any) *QueryBuilder {
	if q.filters == nil {
		q.filters = url.Values{}
	}
	q.filters.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

// Eq добавляет фильтр равенства.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.filter(column, "eq", value)
}

// ILike добавляет регистронезависимый фильтр по шаблону; * заменяет %.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return q.filter(column, "ilike", pattern)
}

// Is добавляет фильтр IS (null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	return q.filter(column, "is", value)
}

// Order добавляет сортировку.
func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	q.orders = append(q.orders, column+"."+dir)
	return q
}

// Limit ограничивает число строк.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Single ожидает ровно одну строку; отсутствие строки превращается в backend.ErrNotFound.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.single = true
	return q
}

// Count запрашивает точное число строк в заголовке Content-Range.
func (q *QueryBuilder) Count() *QueryBuilder {
	q.count = true
	return q
}

func (q *QueryBuilder) url(withSelect bool) string {
	params := url.Values{}
	for k, vs := range q.filters {
		params[k] = append([]string(nil), vs...)
	}
	if withSelect {
		cols := q.columns
		if cols == "" {
			cols = "*"
		}
		params.Set("select", cols)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}

	reqURL := q.client.baseURL + "/rest/v1/" + q.table
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

func (q *QueryBuilder) headers(write bool) map[string]string {
	h := map[string]string{}
	if q.single {
		h["Accept"] = "application/vnd.pgrst.object+json"
	}
	var prefer []string
	if write {
		prefer = append(prefer, "return=representation")
	}
	if q.count {
		prefer = append(prefer, "count=exact")
	}
	if len(prefer) > 0 {
		h["Prefer"] = strings.Join(prefer, ",")
	}
	return h
}

func (q *QueryBuilder) decode(resp *response, dest any) error {
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", q.table, err)
	}
	return nil
}

// Execute выполняет SELECT и декодирует результат в dest.
func (q *QueryBuilder) Execute(ctx context.Context, dest any) error {
	resp, err := q.client.sendJSON(ctx, http.MethodGet, q.url(true), "", nil, q.headers(false))
	if err != nil {
		return q.mapNotFound(err)
	}
	return q.decode(resp, dest)
}

// ExecuteCount выполняет SELECT и возвращает общее число строк.
func (q *QueryBuilder) ExecuteCount(ctx context.Context) (int, error) {
	q.count = true
	q.limit = 1
	resp, err := q.client.sendJSON(ctx, http.MethodGet, q.url(true), "", nil, q.headers(false))
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.header.Get("Content-Range"))
}

// Insert вставляет строку и декодирует созданную запись в dest.
func (q *QueryBuilder) Insert(ctx context.Context, row any, dest any) error {
	resp, err := q.client.sendJSON(ctx, http.MethodPost, q.url(false), "", row, q.headers(true))
	if err != nil {
		return err
	}
	return q.decode(resp, dest)
}

// Upsert вставляет или обновляет строку по первичному ключу.
func (q *QueryBuilder) Upsert(ctx context.Context, row any, dest any) error {
	h := q.headers(true)
	h["Prefer"] = "resolution=merge-duplicates," + h["Prefer"]
	resp, err := q.client.sendJSON(ctx, http.MethodPost, q.url(false), "", row, h)
	if err != nil {
		return err
	}
	return q.decode(resp, dest)
}

// Update изменяет строки, подходящие под фильтры, и декодирует результат в dest.
func (q *QueryBuilder) Update(ctx context.Context, patch any, dest any) error {
	resp, err := q.client.sendJSON(ctx, http.MethodPatch, q.url(false), "", patch, q.headers(true))
	if err != nil {
		return q.mapNotFound(err)
	}
	return q.decode(resp, dest)
}

// Delete удаляет строки, подходящие под фильтры, и декодирует удалённые записи в dest.
func (q *QueryBuilder) Delete(ctx context.Context, dest any) error {
	resp, err := q.client.sendJSON(ctx, http.MethodDelete, q.url(false), "", nil, q.headers(true))
	if err != nil {
		return err
	}
	return q.decode(resp, dest)
}

// mapNotFound переводит ответ PostgREST «нет строк для single» в backend.ErrNotFound.
func (q *QueryBuilder) mapNotFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && q.single && apiErr.StatusCode == http.StatusNotAcceptable {
		return fmt.Errorf("%s: %w", q.table, backend.ErrNotFound)
	}
	return err
}

func parseContentRange(v string) (int, error) {
	i := strings.LastIndex(v, "/")
	if i < 0 || v[i+1:] == "*" {
		return 0, fmt.Errorf("unexpected content-range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", v, err)
	}
	return n, nil
}
