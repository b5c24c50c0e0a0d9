package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDocument(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDocumentsRepository(db)

	doc := &domain.Document{
		ResidentID:   "res-1",
		DocumentType: "id_proof",
		FileName:     "aadhaar.pdf",
		MimeType:     "application/pdf",
		DriveFileID:  "file-1",
		DriveFolder:  "folder-1",
		WebViewLink:  "https://drive.example/file-1",
	}
	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(sqlmock.AnyArg(), "res-1", "id_proof", "aadhaar.pdf", "application/pdf", "file-1", "folder-1", "https://drive.example/file-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	require.NoError(t, repo.CreateDocument(context.Background(), doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, createdAt, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDocuments_NullLink(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDocumentsRepository(db)

	cols := []string{"id", "resident_id", "document_type", "file_name", "mime_type", "drive_file_id", "drive_folder_id", "web_view_link", "created_at"}
	mock.ExpectQuery(`FROM documents`).
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("d2", "res-1", "medical", "b.pdf", "application/pdf", "f2", "folder-1", nil, time.Now()).
			AddRow("d1", "res-1", "id_proof", "a.pdf", "application/pdf", "f1", "folder-1", "https://x", time.Now()))

	docs, err := repo.ListDocuments(context.Background(), "res-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "", docs[0].WebViewLink)
	assert.Equal(t, "https://x", docs[1].WebViewLink)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDriveConfig(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDocumentsRepository(db)

	cols := []string{"id", "client_id", "client_secret", "refresh_token", "access_token", "token_expiry", "root_folder_id"}
	mock.ExpectQuery(`FROM drive_config`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "cid", "secret", "refresh", nil, nil, "root"))

	cfg, err := repo.GetDriveConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh", cfg.RefreshToken)
	assert.Equal(t, "root", cfg.RootFolderID)
	assert.Empty(t, cfg.AccessToken)
	assert.True(t, cfg.TokenExpiry.IsZero())

	mock.ExpectQuery(`FROM drive_config`).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetDriveConfig(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAccessToken(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDocumentsRepository(db)
	expiry := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE drive_config SET access_token`).
		WithArgs("tok", expiry).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveAccessToken(context.Background(), "tok", expiry))

	mock.ExpectExec(`UPDATE drive_config SET access_token`).
		WithArgs("tok", expiry).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SaveAccessToken(context.Background(), "tok", expiry), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRole(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresDocumentsRepository(db)

	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("super_admin"))
	role, err := repo.GetRole(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, role)

	mock.ExpectQuery(`SELECT role FROM user_roles`).
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetRole(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveResidents(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)

	cols := []string{"id", "full_name", "date_of_birth", "status", "created_at"}
	mock.ExpectQuery(`FROM residents\s+WHERE status = 'active'`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r1", "Asha Rao", date("1940-03-10"), "active", time.Now()).
			AddRow("r2", "Ravi Menon", nil, "active", time.Now()))

	residents, err := repo.ListActiveResidents(context.Background())
	require.NoError(t, err)
	require.Len(t, residents, 2)
	require.NotNil(t, residents[0].DateOfBirth)
	assert.Equal(t, date("1940-03-10"), *residents[0].DateOfBirth)
	assert.Nil(t, residents[1].DateOfBirth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResident_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresResidentsRepository(db)

	_, err := repo.GetResident(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`FROM residents\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetResident(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRooms(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRoomsRepository(db)

	cols := []string{"id", "room_number", "room_type", "capacity", "monthly_rate", "occupancy"}
	mock.ExpectQuery(`FROM rooms r\s+LEFT JOIN room_assignments`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("room-1", "101", "single", 1, "15000.00", 1).
			AddRow("room-2", "102", nil, 2, "12000.50", 0))

	rooms, err := repo.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, 0, rooms[0].Available())
	assert.Equal(t, 2, rooms[1].Available())
	assert.Equal(t, "", rooms[1].RoomType)
	assert.True(t, decimal.RequireFromString("12000.50").Equal(rooms[1].MonthlyRate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveRoomForResident_None(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresRoomsRepository(db)

	mock.ExpectQuery(`FROM room_assignments ra`).
		WithArgs("res-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActiveRoomForResident(context.Background(), "res-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
