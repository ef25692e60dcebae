package web

import (
	"log"
	"net/http"
	"strings"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/services"
	"VideoCoach-admin/internal/storage/blob"
	"VideoCoach-admin/internal/storage/mysql"
	"VideoCoach-admin/internal/web/handlers"
)

// SetupRouter は全ルートを組み立てる。認証必須のルートは RequireSession で包む。
func SetupRouter(
	appConfig *config.Config,
	db *mysql.Store,
	blobStorage *blob.FileSystemStorage,
	authService *services.AuthService,
	analyzeService *services.AnalyzeService,
	publishService *services.PublishService,
) http.Handler {
	if analyzeService == nil {
		log.Panicln("SetupRouter：AnalyzeService が空です")
	}
	if authService == nil {
		log.Panicln("SetupRouter：AuthService が空です")
	}

	mux := http.NewServeMux()
	secureCookie := strings.HasPrefix(appConfig.OAuth.PublicBaseURL, "https://")

	authHandler := handlers.NewAuthHandler(authService, db, secureCookie)
	mux.HandleFunc("GET /auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	protected := func(h http.HandlerFunc) http.Handler {
		return handlers.RequireSession(authService, h)
	}

	mux.Handle("GET /auth/me", protected(authHandler.Me))

	videoHandler := handlers.NewVideoHandler(db, analyzeService)
	mux.Handle("POST /videos", protected(videoHandler.Create))
	mux.Handle("GET /videos", protected(videoHandler.List))
	mux.Handle("GET /videos/{id}", protected(videoHandler.Get))
	mux.Handle("PATCH /videos/{id}", protected(videoHandler.Update))

	uploadHandler := handlers.NewUploadHandler(db, blobStorage)
	mux.Handle("POST /upload", protected(uploadHandler.Upload))

	publishHandler := handlers.NewPublishHandler(publishService)
	mux.Handle("POST /publish", protected(publishHandler.Publish))

	rubricHandler := handlers.NewRubricHandler(db)
	mux.Handle("GET /admin/rubric", protected(rubricHandler.List))
	mux.Handle("POST /admin/rubric", protected(rubricHandler.Create))
	mux.Handle("GET /admin/rubric/{id}", protected(rubricHandler.Get))
	mux.Handle("PUT /admin/rubric/{id}", protected(rubricHandler.Update))
	mux.Handle("DELETE /admin/rubric/{id}", protected(rubricHandler.Delete))

	exportHandler := handlers.NewExportHandler(db, db)
	mux.Handle("GET /export", protected(exportHandler.Export))

	mediaHandler := handlers.NewMediaHandler(blobStorage)
	mux.Handle("GET /media/{path...}", protected(mediaHandler.Serve))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Printf("エラー：healthz の応答書き込みに失敗しました: %v\n", err)
		}
	})

	log.Println("情報：ルーターを初期化しました。")
	return mux
}
