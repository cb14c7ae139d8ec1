package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Provider --dir ../domain/teamstats --output domain/teamstats --outpkg teamstatsmock --filename provider_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Generator --dir ../domain/prediction --output domain/prediction --outpkg predictionmock --filename generator_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name PriorProvider --dir ../domain/prediction --output domain/prediction --outpkg predictionmock --filename prior_provider_mock.go
