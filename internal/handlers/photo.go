package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/logger"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"
	"obra-manager/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgPhotoNotFound = "Foto no encontrada"

var photoQuery = filter.QuerySpec{
	Fields:      []string{"proyecto", "tarea", "inspeccion", "categoria"},
	DateField:   "tomada",
	NumberField: "tamano",
}

type photoItem struct {
	models.Photo
	URL string `json:"url"`
}

func ListPhotos(c *gin.Context) {
	var photos []models.Photo
	if err := database.DB.WithContext(c.Request.Context()).Order("created_at desc").Find(&photos).Error; err != nil {
		internalError(c, "list photos", err)
		return
	}

	crit := filter.ParseQuery(c.Request.URL.Query(), photoQuery)
	visible := filter.Resolve(photos, crit, filter.ScopeFor(middleware.Principal(c), access.PhotosViewAll))

	items := make([]photoItem, 0, len(visible))
	for _, ph := range visible {
		items = append(items, photoItem{Photo: ph, URL: fmt.Sprintf("/api/photos/%d/file", ph.ID)})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

type photoForm struct {
	ProjectID    uint   `form:"proyectoId" binding:"required"`
	TaskID       *uint  `form:"tareaId"`
	InspectionID *uint  `form:"inspeccionId"`
	Caption      string `form:"descripcion" binding:"max=500"`
	Category     string `form:"categoria" binding:"omitempty,oneof=avance calidad seguridad incidente"`
	TakenAt      string `form:"tomadaEn" binding:"omitempty,datetime=2006-01-02"`
}

// UploadPhoto accepts a multipart form with the image in the "foto" field. The
// content type is sniffed from the bytes, not taken from the client.
func UploadPhoto(c *gin.Context) {
	var form photoForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.PhotosViewAll, form.ProjectID) {
		return
	}

	fh, err := c.FormFile("foto")
	if err != nil {
		fieldError(c, "foto", "required", "es obligatorio")
		return
	}
	if fh.Size > storage.MaxPhotoSize {
		fieldError(c, "foto", "max", storage.ErrTooLarge.Error())
		return
	}

	var n int64
	if err := database.DB.Model(&models.Project{}).Where("id = ?", form.ProjectID).Count(&n).Error; err != nil {
		internalError(c, "check photo project", err)
		return
	}
	if n == 0 {
		fieldError(c, "proyectoId", "exists", "el proyecto no existe")
		return
	}

	f, err := fh.Open()
	if err != nil {
		internalError(c, "open upload", err)
		return
	}
	defer f.Close()

	head := make([]byte, 512)
	read, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		internalError(c, "read upload", err)
		return
	}
	head = head[:read]
	contentType := http.DetectContentType(head)
	if contentType == "application/octet-stream" && isHEIC(head) {
		// net/http does not sniff heic
		contentType = "image/heic"
	}

	name, size, err := Photos.Save(form.ProjectID, contentType, io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			fieldError(c, "foto", "type", err.Error())
		case errors.Is(err, storage.ErrTooLarge):
			fieldError(c, "foto", "max", err.Error())
		default:
			internalError(c, "store photo", err)
		}
		return
	}

	photo := models.Photo{
		ProjectID:    form.ProjectID,
		TaskID:       form.TaskID,
		InspectionID: form.InspectionID,
		FileName:     name,
		OriginalName: fh.Filename,
		ContentType:  contentType,
		Size:         size,
		Caption:      strings.TrimSpace(form.Caption),
		Category:     form.Category,
		TakenAt:      parseDate(form.TakenAt),
		UploadedBy:   userID(c),
	}
	if photo.TakenAt == nil {
		now := Now().Truncate(time.Second)
		photo.TakenAt = &now
	}

	if err := database.DB.Create(&photo).Error; err != nil {
		if rmErr := Photos.Delete(name); rmErr != nil {
			logger.L.Warn("remove orphan photo", zap.String("file", name), zap.Error(rmErr))
		}
		internalError(c, "create photo", err)
		return
	}

	audit(c, "photo", photo.ID, "upload", "Foto subida: "+photo.OriginalName)
	c.JSON(http.StatusCreated, photoItem{Photo: photo, URL: fmt.Sprintf("/api/photos/%d/file", photo.ID)})
}

var heicBrands = []string{"heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1"}

// isHEIC checks the ISO-BMFF ftyp box at the start of the file.
func isHEIC(head []byte) bool {
	if len(head) < 12 || string(head[4:8]) != "ftyp" {
		return false
	}
	return slices.Contains(heicBrands, string(head[8:12]))
}

func PhotoFile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var photo models.Photo
	if !load(c, &photo, id, msgPhotoNotFound) {
		return
	}
	if !canSee(c, access.PhotosViewAll, photo.ProjectID) {
		return
	}

	path, err := Photos.Path(photo.FileName)
	if err != nil {
		internalError(c, "photo path", err)
		return
	}
	c.Header("Content-Type", photo.ContentType)
	c.File(path)
}

func DeletePhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var photo models.Photo
	if !load(c, &photo, id, msgPhotoNotFound) {
		return
	}
	if !canSee(c, access.PhotosViewAll, photo.ProjectID) {
		return
	}

	if err := database.DB.Delete(&photo).Error; err != nil {
		internalError(c, "delete photo", err)
		return
	}
	if err := Photos.Delete(photo.FileName); err != nil {
		logger.L.Warn("remove photo file", zap.String("file", photo.FileName), zap.Error(err))
	}

	audit(c, "photo", photo.ID, "delete", "Foto eliminada: "+photo.OriginalName)
	c.JSON(http.StatusOK, gin.H{"message": "Foto eliminada"})
}
