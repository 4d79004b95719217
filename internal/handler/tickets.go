package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartcampus/internal/tickets"
)

type ticketPage struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []tickets.Ticket `json:"results"`
}

func ticketID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": tickets.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

// ListTickets filters, searches, orders and paginates tickets.
func (h *Handler) ListTickets(c *gin.Context) {
	q := tickets.Query{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			h.fail(c, tickets.ErrInvalidPage)
			return
		}
		q.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			q.PageSize = size
		}
	}

	page, err := h.Tickets.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := ticketPage{Count: page.Count, Results: page.Results}
	if page.HasNext() {
		u := pageURL(c, page.Page+1)
		out.Next = &u
	}
	if page.HasPrevious() {
		u := pageURL(c, page.Page-1)
		out.Previous = &u
	}
	c.JSON(http.StatusOK, out)
}

// pageURL rewrites the current request URL for another page. Page 1 drops
// the parameter.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	values := c.Request.URL.Query()
	if page <= 1 {
		values.Del("page")
	} else {
		values.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: values.Encode()}
	return u.String()
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var in tickets.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	t, err := h.Tickets.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	t, err := h.Tickets.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var in tickets.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	t, err := h.Tickets.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) PatchTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	var p tickets.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	t, err := h.Tickets.Patch(c.Request.Context(), id, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		return
	}
	if err := h.Tickets.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
