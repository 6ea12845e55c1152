package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studymall/studymall/assetstores"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/models"
)

type downloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining *uint64   `json:"remaining,omitempty"`
}

// artifact is either a signed URL or an open byte stream, depending on
// the configured asset store.
type artifact struct {
	url    string
	stream io.ReadCloser
	size   int64
}

// DownloadURL hands out the asset for a product the caller is entitled
// to. Free products bypass the entitlement and quota checks entirely,
// paid products spend one unit of the per-purchase quota. The quota
// spend only commits once the artifact is in hand, so a signing
// failure never costs the buyer a download.
func (a *API) DownloadURL(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	config := gcontext.GetConfig(ctx)
	store := gcontext.GetAssetStore(ctx)
	userID := gcontext.GetUserID(ctx)
	productID := gcontext.GetProductID(ctx)
	log := getLogEntry(r)

	product, err := models.GetProduct(a.db, productID)
	if err != nil {
		if models.IsNotFoundError(err) {
			return notFoundError("Product not found")
		}
		return internalServerError("Error during database query").WithInternalError(err)
	}

	if product.Price == 0 {
		if !product.Active {
			return notFoundError("Product not found")
		}

		art, err := fetchArtifact(store, product)
		if err != nil {
			return internalServerError("Error preparing download").WithInternalError(err)
		}
		if err := product.IncrementDownloadCount(a.db); err != nil {
			log.WithError(err).Warn("failed to bump product download counter")
		}
		log.Info("serving free download")
		return a.sendArtifact(w, r, art, config.Downloads.URLValidity, product, nil)
	}

	purchase, err := models.GetPaidPurchase(a.db, userID, productID)
	if err != nil {
		if models.IsNotFoundError(err) {
			return forbiddenError("You have not purchased this document")
		}
		return internalServerError("Error during database query").WithInternalError(err)
	}

	tx := a.db.Begin()

	if err := purchase.RegisterDownload(tx); err != nil {
		tx.Rollback()
		if err == models.ErrDownloadLimitReached {
			return forbiddenError("Download limit of %d reached for this purchase", purchase.DownloadLimit)
		}
		return internalServerError("Error registering download").WithInternalError(err)
	}

	// deactivation after purchase closes the gate without burning quota
	if !product.Active {
		tx.Rollback()
		return notFoundError("Product is no longer available")
	}

	if err := product.IncrementDownloadCount(tx); err != nil {
		tx.Rollback()
		return internalServerError("Error registering download").WithInternalError(err)
	}

	art, err := fetchArtifact(store, product)
	if err != nil {
		tx.Rollback()
		return internalServerError("Error preparing download").WithInternalError(err)
	}

	if rsp := tx.Commit(); rsp.Error != nil {
		art.close()
		return internalServerError("Error registering download").WithInternalError(rsp.Error)
	}

	log.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"remaining":   purchase.Remaining(),
	}).Info("download registered")

	return a.sendArtifact(w, r, art, config.Downloads.URLValidity, product, purchase)
}

func fetchArtifact(store assetstores.Store, product *models.Product) (*artifact, error) {
	if streamer, ok := store.(assetstores.Streamer); ok {
		f, size, err := streamer.Open(product.FileKey)
		if err != nil {
			return nil, err
		}
		return &artifact{stream: f, size: size}, nil
	}

	url, err := store.SignURL(product.FileKey)
	if err != nil {
		return nil, err
	}
	return &artifact{url: url}, nil
}

func (art *artifact) close() {
	if art.stream != nil {
		art.stream.Close()
	}
}

func (a *API) sendArtifact(w http.ResponseWriter, r *http.Request, art *artifact, validity time.Duration, product *models.Product, purchase *models.Purchase) error {
	if art.stream != nil {
		defer art.close()

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.FormatInt(art.size, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, product.Title))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, art.stream); err != nil {
			// headers are gone, nothing sensible left to send
			getLogEntry(r).WithError(err).Warn("error streaming asset")
		}
		return nil
	}

	rsp := &downloadResponse{
		URL:       art.url,
		ExpiresAt: timeNow().Add(validity),
	}
	if purchase != nil {
		remaining := purchase.Remaining()
		rsp.Remaining = &remaining
	}
	return sendJSON(w, http.StatusOK, rsp)
}
