// Package blob はアップロードされた動画ファイルのローカル保存を担当する。
// 保存したファイルは /media/ 配下の永続 URL として参照できる。
package blob

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"

	"github.com/google/uuid"
)

// URLPrefix は保存済みブロブを配信する URL のプレフィックス。
const URLPrefix = "/media/"

// FileSystemStorage はローカルファイルシステム上のブロブストア。
type FileSystemStorage struct {
	basePath string
}

// NewFileSystemStorage は保存先ディレクトリを検証 (なければ作成) して返す。
func NewFileSystemStorage(blobCfg config.BlobConfig) (*FileSystemStorage, error) {
	if blobCfg.UploadPath == "" {
		return nil, fmt.Errorf("blob 設定の uploadPath が空です")
	}
	absBasePath, err := filepath.Abs(blobCfg.UploadPath)
	if err != nil {
		return nil, fmt.Errorf("uploadPath の絶対パスを取得できません '%s': %w", blobCfg.UploadPath, err)
	}
	if _, err := os.Stat(absBasePath); os.IsNotExist(err) {
		log.Printf("情報：アップロードディレクトリ '%s' が存在しないため作成します...", absBasePath)
		if err := os.MkdirAll(absBasePath, 0o755); err != nil {
			return nil, fmt.Errorf("アップロードディレクトリ '%s' を作成できません: %w", absBasePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("アップロードディレクトリ '%s' の確認中にエラーが発生しました: %w", absBasePath, err)
	}
	log.Printf("情報：FileSystemStorage を初期化しました。保存先: %s", absBasePath)
	return &FileSystemStorage{basePath: absBasePath}, nil
}

// Store はファイルを保存し永続 URL を返す。
// 元のファイル名にランダムなサフィックスを付けて衝突を避ける。
func (fs *FileSystemStorage) Store(data []byte, filename string) (string, error) {
	if filename == "" {
		return "", models.NewValidationError("ファイル名が必要です")
	}
	if len(data) == 0 {
		return "", models.NewValidationError("ファイルの内容が空です")
	}
	// パス区切りを含むファイル名はベース名だけを使う
	safeName := filepath.Base(filepath.Clean(filename))
	storedName := fmt.Sprintf("%s-%s", uuid.NewString(), safeName)
	targetPath := filepath.Join(fs.basePath, storedName)

	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return "", &models.UploadError{Message: fmt.Sprintf("ファイル '%s' の書き込みに失敗しました", storedName), Cause: err}
	}
	log.Printf("情報：ファイルを保存しました: %s (%d bytes)", targetPath, len(data))
	return URLPrefix + storedName, nil
}

// Read は永続 URL からファイルの内容を読み込む。
func (fs *FileSystemStorage) Read(blobURL string) ([]byte, error) {
	absPath, err := fs.resolve(blobURL)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &models.UploadError{Message: fmt.Sprintf("ファイル '%s' の読み込みに失敗しました", blobURL), Cause: err}
	}
	return data, nil
}

// Delete は永続 URL のファイルを削除する。
// YouTube 公開後のローカルコピー掃除に使われ、失敗はログのみで致命的に扱わない。
func (fs *FileSystemStorage) Delete(blobURL string) error {
	absPath, err := fs.resolve(blobURL)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("ファイル '%s' の削除に失敗しました: %w", blobURL, err)
	}
	log.Printf("情報：ファイルを削除しました: %s", absPath)
	return nil
}

// ServePath は /media/ 配下の相対パスをディレクトリトラバーサルを防ぎつつ
// 絶対パスに解決する。配信ハンドラが使う。
func (fs *FileSystemStorage) ServePath(relativePath string) (string, error) {
	if relativePath == "" || strings.HasSuffix(relativePath, "/") {
		return "", models.NewValidationError("無効なファイルパスです")
	}
	fullPath, err := filepath.Abs(filepath.Join(fs.basePath, relativePath))
	if err != nil {
		return "", fmt.Errorf("ファイルパス '%s' を解決できません: %w", relativePath, err)
	}
	if !strings.HasPrefix(fullPath, fs.basePath+string(os.PathSeparator)) {
		log.Printf("警告：パストラバーサルの可能性があるリクエストを拒否しました: '%s'", relativePath)
		return "", &models.PermissionError{Message: "アクセスが禁止されています"}
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", &models.NotFoundError{Resource: "ファイル"}
		}
		return "", fmt.Errorf("ファイル '%s' の確認中にエラーが発生しました: %w", fullPath, err)
	}
	return fullPath, nil
}

func (fs *FileSystemStorage) resolve(blobURL string) (string, error) {
	if !strings.HasPrefix(blobURL, URLPrefix) {
		return "", &models.UploadError{Message: fmt.Sprintf("ローカルブロブ URL ではありません: %s", blobURL)}
	}
	return fs.ServePath(strings.TrimPrefix(blobURL, URLPrefix))
}
