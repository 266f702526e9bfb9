package repository

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/user/cinechat/internal/model"
	"gorm.io/gorm"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByExternalID 根据目录 API 的外部 ID 查找电影快照
func (r *MovieRepository) FindByExternalID(externalID string) (*model.StoredMovie, error) {
	var movie model.StoredMovie

	err := r.db.Raw(`
		SELECT id, external_id, title, year, poster, rating,
		       genres, director, actors, overview, updated_at
		FROM movies
		WHERE external_id = $1
	`, externalID).Row().Scan(
		&movie.ID, &movie.ExternalID, &movie.Title, &movie.Year,
		&movie.Poster, &movie.Rating,
		pq.Array(&movie.Genres),
		&movie.Director, &movie.Actors, &movie.Overview, &movie.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, err
	}

	return &movie, nil
}

// Upsert 创建或更新电影快照
func (r *MovieRepository) Upsert(movie *model.StoredMovie) error {
	return r.db.Exec(`
		INSERT INTO movies (external_id, title, year, poster, rating,
		                    genres, director, actors, overview,
		                    embedding_content, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			poster = EXCLUDED.poster,
			rating = EXCLUDED.rating,
			genres = EXCLUDED.genres,
			director = EXCLUDED.director,
			actors = EXCLUDED.actors,
			overview = EXCLUDED.overview,
			embedding_content = EXCLUDED.embedding_content,
			embedding = COALESCE(EXCLUDED.embedding, movies.embedding),
			updated_at = EXCLUDED.updated_at
	`, movie.ExternalID, movie.Title, movie.Year, movie.Poster, movie.Rating,
		pq.Array(movie.Genres),
		movie.Director, movie.Actors, movie.Overview,
		movie.EmbeddingContent, movie.Embedding, time.Now()).Error
}

// FindSimilar 按向量余弦距离查找相似电影
func (r *MovieRepository) FindSimilar(externalID string, limit int) ([]model.StoredMovie, error) {
	rows, err := r.db.Raw(`
		SELECT m.id, m.external_id, m.title, m.year, m.poster, m.rating,
		       m.genres, m.director, m.actors, m.overview, m.updated_at
		FROM movies m,
		     (SELECT embedding FROM movies WHERE external_id = $1) src
		WHERE m.external_id <> $1
		  AND m.embedding IS NOT NULL
		  AND src.embedding IS NOT NULL
		ORDER BY m.embedding <=> src.embedding
		LIMIT $2
	`, externalID, limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []model.StoredMovie
	for rows.Next() {
		var m model.StoredMovie
		if err := rows.Scan(
			&m.ID, &m.ExternalID, &m.Title, &m.Year, &m.Poster, &m.Rating,
			pq.Array(&m.Genres),
			&m.Director, &m.Actors, &m.Overview, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}

	return movies, rows.Err()
}
