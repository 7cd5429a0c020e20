package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/qrbill"
)

func formatOptions(c *gin.Context) qrbill.FormatOptions {
	return qrbill.FormatOptions{
		Size:       c.Param("type"),
		Graphics:   c.Query("format"),
		Language:   c.Query("language"),
		Width:      c.Query("width"),
		Height:     c.Query("height"),
		Resolution: c.Query("resolution"),
	}
}

func (h *Handler) GenerateQR(c *gin.Context) {
	var bill qrbill.Bill
	if err := c.ShouldBindJSON(&bill); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "HTTP body could not be parsed into a valid QR bill: "+err.Error())
		return
	}

	format, err := qrbill.ParseFormat(formatOptions(c))
	if err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	}

	h.render(c, bill, format)
}

func (h *Handler) GenerateSimpleQR(c *gin.Context) {
	var req qrbill.SimpleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	}

	opts := formatOptions(c)
	opts.Graphics = string(qrbill.FormatPNG)
	opts.Width, opts.Height = "", ""
	format, err := qrbill.ParseFormat(opts)
	if err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	}

	h.render(c, req.Bill(), format)
}

func (h *Handler) render(c *gin.Context, bill qrbill.Bill, format qrbill.Format) {
	data, err := h.Renderer.Render(c.Request.Context(), bill, format)
	switch {
	case errors.Is(err, qrbill.ErrEngineUnavailable):
		fail(c, http.StatusNotImplemented, ReasonNotImplemented, err.Error())
		return
	case errors.Is(err, qrbill.ErrInvalidBill):
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, err.Error())
		return
	case err != nil:
		h.internal(c, err)
		return
	}

	c.Data(http.StatusOK, format.Graphics.ContentType(), data)
}

func (h *Handler) ScanQR(c *gin.Context) {
	contentType := c.ContentType()
	if !qrbill.Scannable(contentType) {
		fail(c, http.StatusBadRequest, ReasonUnsupportedType, "Provided content type '"+contentType+"' is not supported.")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxScanSize))
	if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ReasonTooLarge, fmt.Sprintf("Document exceeds %d bytes.", tooLarge.Limit))
		return
	}
	if err != nil {
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "Failed to read document: "+err.Error())
		return
	}

	codes, err := h.Decoder.Decode(c.Request.Context(), body, contentType)
	switch {
	case errors.Is(err, qrbill.ErrEngineUnavailable):
		fail(c, http.StatusNotImplemented, ReasonNotImplemented, err.Error())
		return
	case err != nil:
		fail(c, http.StatusBadRequest, ReasonInvalidRequest, "Failed to read provided document: "+err.Error())
		return
	case len(codes) == 0:
		fail(c, http.StatusNotFound, ReasonNotFound, "Provided data did not contain any Swiss QR code.")
		return
	}

	c.JSON(http.StatusOK, codes)
}
