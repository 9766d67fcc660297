package sandbox

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type hsetRequest struct {
	HashKey string `json:"hkey" binding:"required"`
	Key     string `json:"key" binding:"required"`
	Value   string `json:"value"`
}

func (s *Server) hset(hashKey, field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.hashes[hashKey]
	if bucket == nil {
		bucket = make(map[string]string)
		s.hashes[hashKey] = bucket
	}
	bucket[field] = value
}

func (s *Server) handleHSet(c *gin.Context) {
	var req hsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.hset(req.HashKey, req.Key, req.Value)
	c.JSON(http.StatusOK, gin.H{"result": true})
}

func (s *Server) handleHGet(c *gin.Context) {
	hashKey, field := c.Query("hkey"), c.Query("key")
	if hashKey == "" || field == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hkey and key are required"})
		return
	}
	s.mu.Lock()
	value, ok := s.hashes[hashKey][field]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"result": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": value})
}

func (s *Server) handleHGetAll(c *gin.Context) {
	hashKey := c.Query("hkey")
	if hashKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hkey is required"})
		return
	}
	s.mu.Lock()
	out := make(map[string]string, len(s.hashes[hashKey]))
	for k, v := range s.hashes[hashKey] {
		out[k] = v
	}
	s.mu.Unlock()
	if len(out) == 0 {
		c.JSON(http.StatusOK, gin.H{"result": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out})
}
