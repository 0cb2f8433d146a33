package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RIFAI1010/noedot-backend/internal/apperr"
	"github.com/RIFAI1010/noedot-backend/internal/config"
	"github.com/RIFAI1010/noedot-backend/internal/database"
	"github.com/RIFAI1010/noedot-backend/internal/handlers"
	"github.com/RIFAI1010/noedot-backend/internal/kv"
	"github.com/RIFAI1010/noedot-backend/internal/mail"
	"github.com/RIFAI1010/noedot-backend/internal/middleware"
	"github.com/RIFAI1010/noedot-backend/internal/policy"
	"github.com/RIFAI1010/noedot-backend/internal/position"
	"github.com/RIFAI1010/noedot-backend/internal/realtime"
	"github.com/RIFAI1010/noedot-backend/internal/services"
	"github.com/RIFAI1010/noedot-backend/internal/store"
	"github.com/RIFAI1010/noedot-backend/internal/store/memory"
	"github.com/RIFAI1010/noedot-backend/internal/store/mongodb"
	"github.com/RIFAI1010/noedot-backend/internal/token"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg := config.Load()
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		log.Fatal().Msg("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}

	var (
		st      store.Store
		kvStore kv.KV
	)
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("running with in-memory storage, data will not survive a restart")
		st = memory.New()
		kvStore = kv.NewMemory()
	} else {
		client, err := database.ConnectMongo(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		mongoStore := mongodb.New(client, cfg.MongoDB)
		if err := mongoStore.EnsureIndexes(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to create indexes")
		}
		st = mongoStore

		redisClient, err := database.ConnectRedis(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		kvStore = kv.NewRedis(redisClient)
		log.Info().Msg("connected to MongoDB and Redis")
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		log.Warn().Msg("SMTP_HOST not set, verification codes will be logged instead of mailed")
		mailer = mail.LogSender{}
	}

	tokens := token.NewManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	hub := realtime.NewHub(func(raw string) (string, error) {
		claims, err := tokens.ParseAccess(raw)
		if err != nil {
			return "", err
		}
		return claims.UserID(), nil
	})
	hub.Register(realtime.KindNote, noteAccess(st))
	hub.Register(realtime.KindTable, sourceNoteAccess(st, func(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
		table, err := st.TableByID(ctx, id)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return table.SourceNoteID, nil
	}))
	hub.Register(realtime.KindDocument, sourceNoteAccess(st, func(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
		document, err := st.DocumentByID(ctx, id)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return document.SourceNoteID, nil
	}))
	hub.Register(realtime.KindBoard, sourceNoteAccess(st, func(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error) {
		board, err := st.BoardByID(ctx, id)
		if err != nil {
			return primitive.NilObjectID, err
		}
		return board.SourceNoteID, nil
	}))

	locks := position.NewKeyedMutex()
	h := &handlers.Handlers{
		Auth:      services.NewAuthService(st, kvStore, tokens, mailer),
		Notes:     services.NewNoteService(st, hub, locks),
		Tables:    services.NewTableService(st, hub, locks),
		Documents: services.NewDocumentService(st, hub, locks),
		Boards:    services.NewBoardService(st, hub, locks),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(), gin.Recovery())
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ws", hub.Handler())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/verify", h.Verify)
			auth.POST("/resend", h.ResendCode)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
			auth.POST("/logout", h.Logout)
		}

		protected := api.Group("/").Use(middleware.AuthMiddleware(tokens))
		{
			protected.GET("/auth/me", h.Me)

			// NOTE ROUTES
			protected.POST("/notes", h.CreateNote)
			protected.GET("/notes", h.ListNotes)
			protected.GET("/notes/:id", h.GetNote)
			protected.PUT("/notes/:id", h.UpdateNote)
			protected.PUT("/notes/:id/dates", h.UpdateNoteDates)
			protected.PUT("/notes/:id/confirm-due", h.ConfirmNoteDue)
			protected.POST("/notes/:id/favorite", h.FavoriteNote)
			protected.DELETE("/notes/:id/favorite", h.UnfavoriteNote)
			protected.GET("/notes/:id/blocks", h.GetNoteBlocks)
			protected.PUT("/notes/:id/blocks/:blockId/move", h.MoveNoteBlock)
			protected.DELETE("/notes/:id", h.DeleteNote)

			// TABLE ROUTES
			protected.POST("/tables", h.CreateTable)
			protected.GET("/tables", h.ListTables)
			protected.GET("/tables/:id", h.GetTable)
			protected.POST("/tables/:id/relations", h.AddTableRelation)
			protected.PUT("/tables/:id/name", h.UpdateTableName)
			protected.DELETE("/tables/:id", h.DeleteTable)
			protected.POST("/tables/:id/cols", h.CreateCol)
			protected.PUT("/tables/cols/:colId", h.UpdateCol)
			protected.DELETE("/tables/cols/:colId", h.DeleteCol)
			protected.POST("/tables/:id/rows", h.CreateRow)
			protected.DELETE("/tables/rows/:rowId", h.DeleteRow)
			protected.POST("/tables/cells", h.CreateRowData)
			protected.PUT("/tables/cells/:cellId", h.UpdateRowData)
			protected.DELETE("/tables/cells/:cellId", h.DeleteRowData)

			// DOCUMENT ROUTES
			protected.POST("/documents", h.CreateDocument)
			protected.GET("/documents", h.ListDocuments)
			protected.GET("/documents/:id", h.GetDocument)
			protected.POST("/documents/:id/relations", h.AddDocumentRelation)
			protected.PUT("/documents/:id/name", h.UpdateDocumentName)
			protected.PUT("/documents/:id/content", h.UpdateDocumentContent)
			protected.PUT("/documents/:id/height", h.UpdateDocumentHeight)
			protected.DELETE("/documents/:id", h.DeleteDocument)

			// BOARD ROUTES
			protected.POST("/boards", h.CreateBoard)
			protected.GET("/boards", h.ListBoards)
			protected.GET("/boards/:id", h.GetBoard)
			protected.POST("/boards/:id/relations", h.AddBoardRelation)
			protected.PUT("/boards/:id/name", h.UpdateBoardName)
			protected.DELETE("/boards/:id", h.DeleteBoard)
			protected.POST("/boards/:id/columns", h.CreateBoardColumn)
			protected.PUT("/boards/columns/:columnId", h.UpdateBoardColumn)
			protected.DELETE("/boards/columns/:columnId", h.DeleteBoardColumn)
			protected.POST("/boards/columns/:columnId/cards", h.CreateBoardCard)
			protected.PUT("/boards/cards/:cardId", h.UpdateBoardCard)
			protected.DELETE("/boards/cards/:cardId", h.DeleteBoardCard)
			protected.PUT("/boards/cards/:cardId/position", h.MoveBoardCard)
		}
	}

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// noteAccess gates note rooms on the note's own policy.
func noteAccess(st store.Store) realtime.AccessFunc {
	return func(ctx context.Context, roomID, userID string) (*realtime.Access, error) {
		noteID, err := primitive.ObjectIDFromHex(roomID)
		if err != nil {
			return nil, apperr.BadRequest("invalid id")
		}
		note, err := st.NoteByID(ctx, noteID)
		if err != nil {
			return nil, apperr.NotFound("note not found")
		}
		editorIDs, err := st.NoteEditorIDs(ctx, noteID)
		if err != nil {
			return nil, err
		}
		editors := make([]string, len(editorIDs))
		for i, id := range editorIDs {
			editors[i] = id.Hex()
		}
		decision, err := policy.RequireView(note, editors, userID)
		if err != nil {
			return nil, err
		}
		return &realtime.Access{CanEdit: decision.CanEdit, OwnerID: note.UserID.Hex()}, nil
	}
}

// sourceNoteAccess gates a sub-entity room on its source note's
// policy; edit rights over the entity always come from the source.
func sourceNoteAccess(st store.Store, resolve func(ctx context.Context, id primitive.ObjectID) (primitive.ObjectID, error)) realtime.AccessFunc {
	noteFn := noteAccess(st)
	return func(ctx context.Context, roomID, userID string) (*realtime.Access, error) {
		entityID, err := primitive.ObjectIDFromHex(roomID)
		if err != nil {
			return nil, apperr.BadRequest("invalid id")
		}
		sourceNoteID, err := resolve(ctx, entityID)
		if err != nil {
			return nil, apperr.NotFound("entity not found")
		}
		return noteFn(ctx, sourceNoteID.Hex(), userID)
	}
}
