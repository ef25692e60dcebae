package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VideoCoach-admin/internal/clients/gemini"
	"VideoCoach-admin/internal/clients/youtube"
	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/scheduler"
	"VideoCoach-admin/internal/services"
	"VideoCoach-admin/internal/storage/blob"
	"VideoCoach-admin/internal/storage/mysql"
	"VideoCoach-admin/internal/web"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// ローカル開発では .env から環境変数を読み込む。無ければそのまま進む
	if err := godotenv.Load(); err != nil {
		log.Println("情報：.env ファイルが見つかりません。環境変数をそのまま使用します。")
	}

	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("エラー：設定を読み込めません: %v", err)
	}
	log.Println("情報：アプリケーション設定を読み込みました。")

	runMigrations(cfg)

	blobStorage, err := blob.NewFileSystemStorage(cfg.Blob)
	if err != nil {
		log.Fatalf("エラー：ブロブストレージの初期化に失敗しました: %v", err)
	}

	dbStore, err := mysql.NewStore(cfg.Database)
	if err != nil {
		log.Fatalf("エラー：MySQL 接続の初期化に失敗しました: %v", err)
	}
	defer dbStore.Close()

	ctx := context.Background()
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiClient)
	if err != nil {
		log.Fatalf("エラー：Gemini クライアントの初期化に失敗しました: %v", err)
	}

	authSvc, err := services.NewAuthService(cfg, dbStore)
	if err != nil {
		log.Fatalf("エラー：認証サービスの初期化に失敗しました: %v", err)
	}

	analyzeSvc, err := services.NewAnalyzeService(cfg, dbStore, dbStore, blobStorage, geminiClient)
	if err != nil {
		log.Fatalf("エラー：分析サービスの初期化に失敗しました: %v", err)
	}

	youtubeClient := youtube.NewClient(authSvc.OAuthConfig(), cfg.Publish)
	publishSvc, err := services.NewPublishService(dbStore, blobStorage, authSvc, youtubeClient, analyzeSvc)
	if err != nil {
		log.Fatalf("エラー：公開サービスの初期化に失敗しました: %v", err)
	}

	if cfg.Scheduler.Enabled {
		retryJob := scheduler.NewRetryJob(dbStore, analyzeSvc)
		appScheduler := scheduler.NewScheduler(retryJob, cfg.Scheduler.AnalyzeCronSpec)
		appScheduler.Start()
		defer appScheduler.Stop()
	} else {
		log.Println("情報：スケジューラは設定で無効化されています。")
	}

	router := web.SetupRouter(cfg, dbStore, blobStorage, authSvc, analyzeSvc, publishSvc)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("情報：HTTP サーバーが %s で待ち受けています。\n", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("エラー：HTTP サーバーの待ち受けに失敗しました: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("情報：終了シグナルを受信しました。シャットダウンしています...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("エラー：HTTP サーバーの停止に失敗しました: %v", err)
	}
	log.Println("情報：HTTP サーバーを停止しました。")
	log.Println("情報：アプリケーションを終了します。")
}

// runMigrations は起動時にスキーマを最新へ引き上げる。dirty 状態は起動を止める。
func runMigrations(cfg *config.Config) {
	migrationPath := "file://scripts/migrate/mysql"
	dsn := fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	m, err := migrate.New(migrationPath, dsn)
	if err != nil {
		log.Fatalf("エラー：マイグレーションの初期化に失敗しました: %v", err)
	}
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		log.Fatalf("エラー：マイグレーションのバージョン取得に失敗しました: %v", err)
	}
	if dirty {
		log.Fatalf("エラー：データベースが dirty 状態です (バージョン %d)。手動での復旧が必要です。", version)
	}
	err = m.Up()
	switch {
	case err == migrate.ErrNoChange:
		log.Println("情報：データベーススキーマは最新です。")
	case err != nil:
		log.Fatalf("エラー：マイグレーションの実行に失敗しました: %v", err)
	default:
		newVersion, _, _ := m.Version()
		log.Printf("情報：マイグレーションを適用しました。バージョン: %d\n", newVersion)
	}
}
