// Command useradd 在凭证存储中创建账号。系统不开放自助注册，首个管理员通过它创建。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sqlchat-go/internal/config"
	"sqlchat-go/internal/model"
	"sqlchat-go/internal/repository"
	"sqlchat-go/internal/service"
	"sqlchat-go/pkg/database"
	"sqlchat-go/pkg/log"
	"sqlchat-go/pkg/token"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	name := flag.String("name", "", "显示名称")
	email := flag.String("email", "", "登录邮箱")
	role := flag.String("role", model.RoleTeacher, "角色: teacher 或 admin")
	flag.Parse()

	password := os.Getenv("SQLCHAT_NEW_USER_PASSWORD")
	if *email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: SQLCHAT_NEW_USER_PASSWORD=... useradd -email <email> [-name <name>] [-role teacher|admin]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Log.Level, "console", "")
	defer log.Sync()

	db, err := database.InitMySQL(cfg.Database.MySQL)
	if err != nil {
		log.Fatalf("MySQL 初始化失败: %v", err)
	}
	if err := database.AutoMigrate(db, &model.User{}); err != nil {
		log.Fatalf("数据表迁移失败: %v", err)
	}

	svc := service.NewUserService(repository.NewUserRepository(db), token.NewJWTManager(cfg.JWT.Secret, 0))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := svc.Provision(ctx, *name, *email, password, *role)
	if err != nil {
		log.Fatalf("创建用户失败: %v", err)
	}
	fmt.Printf("created user %d <%s> role=%s\n", user.ID, user.Email, user.Role)
}
