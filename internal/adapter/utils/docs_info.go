// @title           Knowledge Core API
// @version         1.0
// @description     Ingests repositories, paths, web pages and inline text into vector collections and answers similarity queries over them.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package utils

//run redis
//docker run -p 6379:6379 -d redis

//docker run
//docker run -p 6333:6333 -p 6334:6334 -v vectorDBData:/qddrant/storage qdrant/qdrant

//local dev without external services
//VECTOR_BACKEND=sqlite EMBEDDINGS_PROVIDER=local NO_AUTH_BYPASS=true go run ./cmd/api

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
